package handlers

import (
	"bytes"
	"log"
	"mime"
	"net/http"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/export"
	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	store *board.Store
}

func NewExportHandler(store *board.Store) *ExportHandler {
	return &ExportHandler{store: store}
}

func (h *ExportHandler) Spreadsheet(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Board(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSpreadsheet(&buf, b, h.store.DoneColumn()); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename(b)}))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing spreadsheet: %v", err)
	}
}
