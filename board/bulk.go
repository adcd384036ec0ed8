package board

import (
	"context"
	"fmt"
	"log"

	"github.com/CrowderSoup/vieira-boards/database"
)

// Rejections maps a column id to the reason its new order was not applied.
type Rejections map[string]error

// ApplyBulkReorder replaces the task order of the named columns. Each column
// is checked on its own: an unknown column or an order that is not a
// permutation of the column's current task ids is rejected and left as is,
// while the valid columns of the same call are applied.
func (s *Store) ApplyBulkReorder(ctx context.Context, boardID string, orders map[string][]string) (Rejections, error) {
	out, err := s.ApplyPrioritization(ctx, boardID, orders, nil)
	if err != nil {
		return nil, err
	}
	return out.Rejected, nil
}

// ApplyBulkPriority sets the priority of each listed task. Ids that are not
// on the board and invalid priorities are ignored.
func (s *Store) ApplyBulkPriority(ctx context.Context, boardID string, changes map[string]database.Priority) error {
	_, err := s.ApplyPrioritization(ctx, boardID, nil, changes)
	return err
}

// PrioritizationOutcome reports what ApplyPrioritization did.
type PrioritizationOutcome struct {
	Rejected Rejections
	// Previous holds the old priority of every task whose priority changed.
	Previous map[string]database.Priority
}

// ApplyPrioritization applies a reordering and a set of priority changes in
// a single transition, with the rules of ApplyBulkReorder and ApplyBulkPriority.
func (s *Store) ApplyPrioritization(ctx context.Context, boardID string, orders map[string][]string, changes map[string]database.Priority) (*PrioritizationOutcome, error) {
	var out *PrioritizationOutcome
	_, err := s.mutate(ctx, boardID, func(st *boardState) error {
		out = &PrioritizationOutcome{
			Rejected: Rejections{},
			Previous: map[string]database.Priority{},
		}
		changed := false
		for cid, ids := range orders {
			col, ok := st.data.Columns[cid]
			if !ok {
				out.Rejected[cid] = fmt.Errorf("%w: %s", ErrInvalidColumn, cid)
				continue
			}
			if !isPermutation(col.TaskIDs, ids) {
				out.Rejected[cid] = fmt.Errorf("%w: %s", ErrNotPermutation, cid)
				continue
			}
			col.TaskIDs = append([]string{}, ids...)
			changed = true
		}
		for tid, p := range changes {
			t, ok := st.data.Tasks[tid]
			if !ok || !p.Valid() || t.Priority == p {
				continue
			}
			out.Previous[tid] = t.Priority
			t.Priority = p
			changed = true
		}
		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for cid, reason := range out.Rejected {
		log.Printf("Board %s: reorder of column %s rejected: %v", boardID, cid, reason)
	}
	return out, nil
}

// isPermutation reports whether next holds exactly the ids of current.
func isPermutation(current, next []string) bool {
	if len(current) != len(next) {
		return false
	}
	counts := make(map[string]int, len(current))
	for _, id := range current {
		counts[id]++
	}
	for _, id := range next {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}

// Stats is the counts-only projection of a board.
type Stats struct {
	Tasks   int `json:"tasks"`
	Done    int `json:"done"`
	Overdue int `json:"overdue"`
}

func (s *Store) Stats(boardID string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(boardID)
	if err != nil {
		return Stats{}, err
	}
	st := s.boards[i]
	now := s.opts.Now().UnixMilli()
	stats := Stats{Tasks: len(st.data.Tasks)}
	for id, t := range st.data.Tasks {
		if st.columnOf[id] == s.opts.DoneColumn {
			stats.Done++
			continue
		}
		if t.DueDate != nil && *t.DueDate < now {
			stats.Overdue++
		}
	}
	return stats, nil
}

// Workload counts the not-done tasks of each assignee.
func (s *Store) Workload(boardID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(boardID)
	if err != nil {
		return nil, err
	}
	st := s.boards[i]
	load := make(map[string]int)
	for id, t := range st.data.Tasks {
		if t.AssigneeID == "" || st.columnOf[id] == s.opts.DoneColumn {
			continue
		}
		load[t.AssigneeID]++
	}
	return load, nil
}
