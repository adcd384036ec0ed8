// Package board holds the authoritative in-memory state of every board and
// persists a full snapshot after each mutation.
package board

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/google/uuid"
)

// Default columns of a new board. The completion toggle moves tasks between
// ActiveColumnID and DoneColumnID.
const (
	ActiveColumnID   = "col-1"
	ProgressColumnID = "col-2"
	DoneColumnID     = "col-3"
)

type Options struct {
	ActiveColumn string
	DoneColumn   string
	Now          func() time.Time
	NewID        func() string
}

// boardState pairs a board with its reverse index (task id -> column id).
// Both are replaced together, never one without the other.
type boardState struct {
	data     *database.BoardData
	columnOf map[string]string
}

func (s *boardState) clone() *boardState {
	c := &boardState{
		data:     s.data.Clone(),
		columnOf: make(map[string]string, len(s.columnOf)),
	}
	for k, v := range s.columnOf {
		c.columnOf[k] = v
	}
	return c
}

func newBoardState(b *database.BoardData) *boardState {
	st := &boardState{data: b, columnOf: make(map[string]string)}
	for cid, col := range b.Columns {
		for _, tid := range col.TaskIDs {
			st.columnOf[tid] = cid
		}
	}
	return st
}

// Store is the single authoritative representation of the boards. Mutations
// are serialized; each one is flushed to the SnapshotStore before the next
// one can start.
type Store struct {
	mu        sync.Mutex
	snapshots database.SnapshotStore
	opts      Options
	boards    []*boardState
	activeID  string
	listeners []func(*database.BoardData)
}

func NewStore(snapshots database.SnapshotStore, opts Options) *Store {
	if opts.ActiveColumn == "" {
		opts.ActiveColumn = ActiveColumnID
	}
	if opts.DoneColumn == "" {
		opts.DoneColumn = DoneColumnID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{snapshots: snapshots, opts: opts}
}

// Load reads the persisted boards once. When nothing is persisted the seed
// boards are used and written out.
func (s *Store) Load(ctx context.Context, seed []*database.BoardData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.snapshots.Get(ctx, database.AllBoardsKey)
	if err != nil {
		return fmt.Errorf("failed to load boards: %w", err)
	}

	var boards []*database.BoardData
	activeID := ""
	fromSeed := !ok
	if ok {
		snap, err := decodeSnapshot(data)
		if err != nil {
			return err
		}
		for _, b := range snap.Boards {
			if b != nil {
				boards = append(boards, b)
			}
		}
		activeID = snap.ActiveBoardID
		if len(boards) == 0 {
			fromSeed = true
		}
	}
	if fromSeed {
		boards = make([]*database.BoardData, 0, len(seed))
		for _, b := range seed {
			if b != nil {
				boards = append(boards, b.Clone())
			}
		}
		if len(boards) == 0 {
			boards = append(boards, s.defaultBoard("Meu Quadro"))
		}
	}

	states := make([]*boardState, 0, len(boards))
	for _, b := range boards {
		s.normalize(b)
		states = append(states, newBoardState(b))
	}
	if !containsBoard(states, activeID) {
		activeID = states[0].data.ID
	}

	if fromSeed {
		if err := s.persist(ctx, states, activeID); err != nil {
			return err
		}
		log.Printf("Seeded %d board(s)", len(states))
	}
	s.boards = states
	s.activeID = activeID
	return nil
}

// Subscribe registers fn to receive a copy of a board after every committed
// mutation of it. fn runs while the store is locked and must not call back
// into the Store.
func (s *Store) Subscribe(fn func(*database.BoardData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// DoneColumn returns the id of the column that marks tasks as completed.
func (s *Store) DoneColumn() string { return s.opts.DoneColumn }

func (s *Store) ActiveBoardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Boards returns copies of all boards in display order.
func (s *Store) Boards() []*database.BoardData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*database.BoardData, 0, len(s.boards))
	for _, st := range s.boards {
		out = append(out, st.data.Clone())
	}
	return out
}

// Board returns a copy of the board. An empty id selects the active board.
func (s *Store) Board(boardID string) (*database.BoardData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(boardID)
	if err != nil {
		return nil, err
	}
	return s.boards[i].data.Clone(), nil
}

// CreateBoard appends a board with the three default columns.
func (s *Store) CreateBoard(ctx context.Context, title string) (*database.BoardData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.defaultBoard(title)
	next := append(append([]*boardState{}, s.boards...), newBoardState(b))
	if err := s.persist(ctx, next, s.activeID); err != nil {
		return nil, err
	}
	s.boards = next
	s.publish(b)
	return b.Clone(), nil
}

func (s *Store) SetActiveBoard(ctx context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !containsBoard(s.boards, boardID) {
		return fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
	}
	if boardID == s.activeID {
		return nil
	}
	if err := s.persist(ctx, s.boards, boardID); err != nil {
		return err
	}
	s.activeID = boardID
	return nil
}

// mutate applies fn to a copy of the board, persists the full collection and
// only then publishes the copy as the new state. If fn or the write fails the
// previous state stays in place.
func (s *Store) mutate(ctx context.Context, boardID string, fn func(st *boardState) error) (*database.BoardData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(boardID)
	if err != nil {
		return nil, err
	}
	next := s.boards[i].clone()
	if err := fn(next); err != nil {
		if err == errNoChange {
			return next.data.Clone(), nil
		}
		return nil, err
	}

	boards := append([]*boardState{}, s.boards...)
	boards[i] = next
	if err := s.persist(ctx, boards, s.activeID); err != nil {
		return nil, err
	}
	s.boards = boards
	s.publish(next.data)
	return next.data.Clone(), nil
}

func (s *Store) persist(ctx context.Context, states []*boardState, activeID string) error {
	boards := make([]*database.BoardData, 0, len(states))
	for _, st := range states {
		boards = append(boards, st.data)
	}
	data, err := encodeSnapshot(activeID, boards)
	if err != nil {
		return err
	}
	if err := s.snapshots.Put(ctx, database.AllBoardsKey, data); err != nil {
		log.Printf("Error saving boards: %v", err)
		return fmt.Errorf("failed to persist boards: %w", err)
	}
	return nil
}

func (s *Store) publish(b *database.BoardData) {
	for _, fn := range s.listeners {
		fn(b.Clone())
	}
}

func (s *Store) indexOf(boardID string) (int, error) {
	if boardID == "" {
		boardID = s.activeID
	}
	for i, st := range s.boards {
		if st.data.ID == boardID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
}

func containsBoard(states []*boardState, id string) bool {
	for _, st := range states {
		if st.data.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) defaultBoard(title string) *database.BoardData {
	return &database.BoardData{
		ID:    s.opts.NewID(),
		Title: title,
		Tasks: map[string]*database.Task{},
		Columns: map[string]*database.Column{
			ActiveColumnID:   {ID: ActiveColumnID, Title: "A Fazer", TaskIDs: []string{}},
			ProgressColumnID: {ID: ProgressColumnID, Title: "Em Andamento", TaskIDs: []string{}},
			DoneColumnID:     {ID: DoneColumnID, Title: "Concluído", TaskIDs: []string{}},
		},
		ColumnOrder: []string{ActiveColumnID, ProgressColumnID, DoneColumnID},
		UserStats:   database.UserStats{Points: 0, Level: 1, Badges: []string{}},
	}
}

// normalize fills defaults in loaded or seeded data and repairs the board
// invariants: referenced task ids exist, no task sits in two columns, and
// columnOrder is a permutation of the column keys.
func (s *Store) normalize(b *database.BoardData) {
	if b.ID == "" {
		b.ID = s.opts.NewID()
	}
	if b.Tasks == nil {
		b.Tasks = map[string]*database.Task{}
	}
	if b.Columns == nil {
		b.Columns = map[string]*database.Column{}
	}
	if b.UserStats.Badges == nil {
		b.UserStats.Badges = []string{}
	}
	now := s.opts.Now().UnixMilli()
	for id, t := range b.Tasks {
		if t == nil {
			delete(b.Tasks, id)
			continue
		}
		t.ID = id
		if t.CreatedAt == 0 {
			t.CreatedAt = now
		}
		if !t.Priority.Valid() {
			t.Priority = database.PriorityLow
		}
		if t.Tags == nil {
			t.Tags = []string{}
		}
		if t.Subtasks == nil {
			t.Subtasks = []database.Subtask{}
		}
		if t.Comments == nil {
			t.Comments = []database.Comment{}
		}
		if t.Attachments == nil {
			t.Attachments = []database.Attachment{}
		}
	}

	// columnOrder: keep known ids once, then append unlisted columns
	seenCol := make(map[string]bool)
	order := make([]string, 0, len(b.Columns))
	for _, cid := range b.ColumnOrder {
		if _, ok := b.Columns[cid]; ok && !seenCol[cid] {
			seenCol[cid] = true
			order = append(order, cid)
		}
	}
	var rest []string
	for cid := range b.Columns {
		if !seenCol[cid] {
			rest = append(rest, cid)
		}
	}
	sort.Strings(rest)
	b.ColumnOrder = append(order, rest...)

	seenTask := make(map[string]bool)
	for _, cid := range b.ColumnOrder {
		col := b.Columns[cid]
		if col == nil {
			col = &database.Column{}
			b.Columns[cid] = col
		}
		col.ID = cid
		ids := make([]string, 0, len(col.TaskIDs))
		for _, tid := range col.TaskIDs {
			if _, ok := b.Tasks[tid]; !ok {
				log.Printf("Board %s: dropping dangling task id %s from column %s", b.ID, tid, cid)
				continue
			}
			if seenTask[tid] {
				log.Printf("Board %s: task %s listed in more than one column, keeping first", b.ID, tid)
				continue
			}
			seenTask[tid] = true
			ids = append(ids, tid)
		}
		col.TaskIDs = ids
	}
}
