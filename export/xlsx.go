// Package export renders read-only projections of a board.
package export

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName = "Status"

	StatusDone   = "Concluído"
	StatusActive = "Ativo"
)

var header = []any{"Título", "Prioridade", "Status"}

// Rows returns one row per task, header first. Tasks are listed in column
// order; tasks that are in no column follow, oldest first.
func Rows(b *database.BoardData, doneColumnID string) [][]any {
	rows := [][]any{header}
	listed := make(map[string]bool, len(b.Tasks))
	for _, cid := range b.ColumnOrder {
		col, ok := b.Columns[cid]
		if !ok {
			continue
		}
		status := StatusActive
		if cid == doneColumnID {
			status = StatusDone
		}
		for _, tid := range col.TaskIDs {
			t, ok := b.Tasks[tid]
			if !ok {
				continue
			}
			listed[tid] = true
			rows = append(rows, []any{t.Title, string(t.Priority), status})
		}
	}

	var loose []*database.Task
	for id, t := range b.Tasks {
		if !listed[id] {
			loose = append(loose, t)
		}
	}
	slices.SortFunc(loose, func(x, y *database.Task) int {
		return cmp.Or(cmp.Compare(x.CreatedAt, y.CreatedAt), cmp.Compare(x.ID, y.ID))
	})
	for _, t := range loose {
		rows = append(rows, []any{t.Title, string(t.Priority), StatusActive})
	}
	return rows
}

// WriteSpreadsheet writes the board as an xlsx workbook with a single
// "Status" sheet.
func WriteSpreadsheet(w io.Writer, b *database.BoardData, doneColumnID string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, row := range Rows(b, doneColumnID) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

var pathSeparators = strings.NewReplacer("/", "-", "\\", "-")

// Filename returns the download name of a board's spreadsheet. Path
// separators in the title are replaced so the name is a single path element.
func Filename(b *database.BoardData) string {
	title := strings.TrimSpace(pathSeparators.Replace(b.Title))
	if title == "" || title == "." || title == ".." {
		title = b.ID
	}
	return title + ".xlsx"
}
