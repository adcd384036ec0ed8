package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func testOptions() Options {
	return Options{
		Now:   func() time.Time { return fixedNow },
		NewID: sequentialIDs(),
	}
}

func emptyBoard(id string) *database.BoardData {
	return &database.BoardData{
		ID:    id,
		Title: "Test",
		Tasks: map[string]*database.Task{},
		Columns: map[string]*database.Column{
			"col-1": {ID: "col-1", Title: "A Fazer", TaskIDs: []string{}},
			"col-2": {ID: "col-2", Title: "Em Andamento", TaskIDs: []string{}},
			"col-3": {ID: "col-3", Title: "Concluído", TaskIDs: []string{}},
		},
		ColumnOrder: []string{"col-1", "col-2", "col-3"},
		UserStats:   database.UserStats{Level: 1, Badges: []string{}},
	}
}

func setupSnapshots(t *testing.T) *database.DataService {
	t.Helper()
	db, err := database.InitDB("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewDataService(db)
}

func setupStore(t *testing.T, seed ...*database.BoardData) (*Store, *database.DataService) {
	t.Helper()
	if len(seed) == 0 {
		seed = []*database.BoardData{emptyBoard("b1")}
	}
	snaps := setupSnapshots(t)
	s := NewStore(snaps, testOptions())
	require.NoError(t, s.Load(context.Background(), seed))
	return s, snaps
}

func mustBoard(t *testing.T, s *Store, id string) *database.BoardData {
	t.Helper()
	b, err := s.Board(id)
	require.NoError(t, err)
	return b
}

// failingSnapshots fails every Put after the first failAfter calls.
type failingSnapshots struct {
	mu        sync.Mutex
	data      map[string][]byte
	puts      int
	failAfter int
}

func (f *failingSnapshots) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[key]
	return d, ok, nil
}

func (f *failingSnapshots) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.puts > f.failAfter {
		return errors.New("disk full")
	}
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = append([]byte{}, data...)
	return nil
}

func (f *failingSnapshots) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func TestCreateAndToggleScenario(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	tid, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X"})
	require.NoError(t, err)
	b := mustBoard(t, s, "b1")
	assert.Equal(t, []string{tid}, b.Columns["col-1"].TaskIDs)
	assert.Equal(t, "X", b.Tasks[tid].Title)
	assert.Equal(t, database.PriorityLow, b.Tasks[tid].Priority)
	assert.Equal(t, fixedNow.UnixMilli(), b.Tasks[tid].CreatedAt)
	assert.Empty(t, b.Tasks[tid].Subtasks)
	assert.NotNil(t, b.Tasks[tid].Comments)

	require.NoError(t, s.MoveTask(ctx, "b1", tid))
	b = mustBoard(t, s, "b1")
	assert.Empty(t, b.Columns["col-1"].TaskIDs)
	assert.Equal(t, []string{tid}, b.Columns["col-3"].TaskIDs)

	require.NoError(t, s.MoveTask(ctx, "b1", tid))
	b = mustBoard(t, s, "b1")
	assert.Equal(t, []string{tid}, b.Columns["col-1"].TaskIDs)
	assert.Empty(t, b.Columns["col-3"].TaskIDs)
}

func TestCreateTask_PrependsAndDefaults(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	first, err := s.CreateTask(ctx, "", "col-1", TaskFields{})
	require.NoError(t, err)
	second, err := s.CreateTask(ctx, "", "col-1", TaskFields{Title: "second", Priority: database.PriorityHigh, Tags: []string{"a", "a"}})
	require.NoError(t, err)

	b := mustBoard(t, s, "b1")
	assert.Equal(t, []string{second, first}, b.Columns["col-1"].TaskIDs)
	assert.Equal(t, "Nova Tarefa", b.Tasks[first].Title)
	assert.Equal(t, "fa-plus", b.Tasks[first].Icon)
	assert.Equal(t, []string{"a", "a"}, b.Tasks[second].Tags)
}

func TestCreateTask_Errors(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, "b1", "col-9", TaskFields{Title: "X"})
	assert.ErrorIs(t, err, ErrInvalidColumn)

	_, err = s.CreateTask(ctx, "nope", "col-1", TaskFields{Title: "X"})
	assert.ErrorIs(t, err, ErrBoardNotFound)

	_, err = s.CreateTask(ctx, "b1", "col-1", TaskFields{Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidField)

	six := 6
	_, err = s.CreateTask(ctx, "b1", "col-1", TaskFields{Complexity: &six})
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.Empty(t, mustBoard(t, s, "b1").Tasks)
}

func TestDeleteThenUpdate_TaskNotFound(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	tid, err := s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "X"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTask(ctx, "b1", tid))

	title := "Y"
	_, _, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	b := mustBoard(t, s, "b1")
	assert.NotContains(t, b.Tasks, tid)
	assert.Empty(t, b.Columns["col-2"].TaskIDs)

	assert.ErrorIs(t, s.DeleteTask(ctx, "b1", tid), ErrTaskNotFound)
}

func TestUpdateTask_MergesShallowAndReplacesSequences(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	due := fixedNow.Add(48 * time.Hour).UnixMilli()
	tid, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X", Description: "d", Tags: []string{"a", "b"}, DueDate: &due})
	require.NoError(t, err)

	high := database.PriorityHigh
	tags := []string{"c"}
	subs := []database.Subtask{{ID: "s1", Title: "one"}}
	updated, previous, err := s.UpdateTask(ctx, "b1", tid, TaskPatch{Priority: &high, Tags: &tags, Subtasks: &subs})
	require.NoError(t, err)
	assert.Equal(t, database.PriorityLow, previous)

	assert.Equal(t, "X", updated.Title)
	assert.Equal(t, "d", updated.Description)
	assert.Equal(t, database.PriorityHigh, updated.Priority)
	assert.Equal(t, []string{"c"}, updated.Tags)
	assert.Equal(t, subs, updated.Subtasks)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, due, *updated.DueDate)

	updated, previous, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, database.PriorityHigh, previous)

	bad := database.Priority("urgent")
	_, _, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{Priority: &bad})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestUpdateTask_RejectsDuplicateIDs(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	tid, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X"})
	require.NoError(t, err)
	before := mustBoard(t, s, "b1")

	subs := []database.Subtask{{ID: "s1", Title: "a"}, {ID: "s1", Title: "b"}}
	_, _, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{Subtasks: &subs})
	assert.ErrorIs(t, err, ErrInvalidField)

	comments := []database.Comment{{ID: "c1", Text: "a"}, {ID: "c1", Text: "b"}}
	_, _, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{Comments: &comments})
	assert.ErrorIs(t, err, ErrInvalidField)

	attachments := []database.Attachment{{ID: "a1", Name: "x.pdf"}, {ID: "a1", Name: "y.pdf"}}
	title := "renamed"
	_, _, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{Title: &title, Attachments: &attachments})
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.Equal(t, before, mustBoard(t, s, "b1"))

	subs = []database.Subtask{{ID: "s1", Title: "a"}, {ID: "s2", Title: "b"}}
	_, _, err = s.UpdateTask(ctx, "b1", tid, TaskPatch{Subtasks: &subs})
	require.NoError(t, err)
	task, err := s.ToggleSubtask(ctx, "b1", tid, "s1")
	require.NoError(t, err)
	assert.Equal(t, []database.Subtask{{ID: "s1", Title: "a", Completed: true}, {ID: "s2", Title: "b"}}, task.Subtasks)
}

func TestCreateTasks_SingleTransitionInOrder(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	existing, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "old"})
	require.NoError(t, err)

	var published int
	s.Subscribe(func(*database.BoardData) { published++ })

	ids, err := s.CreateTasks(ctx, "b1", "col-1", []TaskFields{
		{Title: "first", Priority: database.PriorityHigh},
		{Title: "second"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 1, published)

	b := mustBoard(t, s, "b1")
	assert.Equal(t, []string{ids[0], ids[1], existing}, b.Columns["col-1"].TaskIDs)
	assert.Equal(t, "first", b.Tasks[ids[0]].Title)
	assert.Equal(t, database.PriorityLow, b.Tasks[ids[1]].Priority)
	assertInvariants(t, b)

	_, err = s.CreateTasks(ctx, "b1", "col-1", []TaskFields{{Title: "ok"}, {Title: "bad", Priority: "asap"}})
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = s.CreateTasks(ctx, "b1", "col-9", []TaskFields{{Title: "x"}})
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.Equal(t, b, mustBoard(t, s, "b1"))
	assert.Equal(t, 1, published)
}

func TestMoveTask_NotInAnyColumnIsNoop(t *testing.T) {
	s, _ := setupStore(t)
	before := mustBoard(t, s, "b1")

	assert.NoError(t, s.MoveTask(context.Background(), "b1", "task-missing"))
	assert.Equal(t, before, mustBoard(t, s, "b1"))
}

func TestMoveTask_FromProgressGoesToDone(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	tid, err := s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "X"})
	require.NoError(t, err)
	require.NoError(t, s.MoveTask(ctx, "b1", tid))

	b := mustBoard(t, s, "b1")
	assert.Empty(t, b.Columns["col-2"].TaskIDs)
	assert.Equal(t, []string{tid}, b.Columns["col-3"].TaskIDs)
}

func TestMoveTaskTo_InsertsAtClampedIndex(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	a, _ := s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "a"})
	b, _ := s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "b"})
	c, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "c"})

	require.NoError(t, s.MoveTaskTo(ctx, "b1", c, "col-2", 1))
	assert.Equal(t, []string{b, c, a}, mustBoard(t, s, "b1").Columns["col-2"].TaskIDs)

	require.NoError(t, s.MoveTaskTo(ctx, "b1", b, "col-2", 99))
	assert.Equal(t, []string{c, a, b}, mustBoard(t, s, "b1").Columns["col-2"].TaskIDs)

	require.NoError(t, s.MoveTaskTo(ctx, "b1", a, "col-1", -3))
	board := mustBoard(t, s, "b1")
	assert.Equal(t, []string{a}, board.Columns["col-1"].TaskIDs)
	assert.Equal(t, []string{c, b}, board.Columns["col-2"].TaskIDs)

	assert.ErrorIs(t, s.MoveTaskTo(ctx, "b1", "nope", "col-1", 0), ErrTaskNotFound)
	assert.ErrorIs(t, s.MoveTaskTo(ctx, "b1", a, "col-x", 0), ErrInvalidColumn)
}

func TestApplyBulkPriority_UnknownIDIsNoop(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	tid, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X", Priority: database.PriorityMedium})
	require.NoError(t, err)
	before := mustBoard(t, s, "b1")

	err = s.ApplyBulkPriority(ctx, "b1", map[string]database.Priority{"task-1": database.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, before, mustBoard(t, s, "b1"))

	err = s.ApplyBulkPriority(ctx, "b1", map[string]database.Priority{
		"task-1": database.PriorityHigh,
		tid:      database.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, database.PriorityHigh, mustBoard(t, s, "b1").Tasks[tid].Priority)
}

func TestApplyBulkReorder_RejectsPerColumn(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	t1, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "1"})
	t2, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "2"})
	t3, _ := s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "3"})
	t4, _ := s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "4"})
	t5, _ := s.CreateTask(ctx, "b1", "col-3", TaskFields{Title: "5"})

	rejected, err := s.ApplyBulkReorder(ctx, "b1", map[string][]string{
		"col-1": {t1, t2}, // valid
		"col-2": {t3, t5}, // id from another column
		"col-3": {},       // omits one
		"col-9": {t4},     // unknown column
	})
	require.NoError(t, err)
	assert.Len(t, rejected, 3)
	assert.ErrorIs(t, rejected["col-2"], ErrNotPermutation)
	assert.ErrorIs(t, rejected["col-3"], ErrNotPermutation)
	assert.ErrorIs(t, rejected["col-9"], ErrInvalidColumn)

	b := mustBoard(t, s, "b1")
	assert.Equal(t, []string{t1, t2}, b.Columns["col-1"].TaskIDs)
	assert.Equal(t, []string{t4, t3}, b.Columns["col-2"].TaskIDs)
	assert.Equal(t, []string{t5}, b.Columns["col-3"].TaskIDs)
}

func TestApplyBulkReorder_DuplicateIDsRejected(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	t1, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "1"})
	t2, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "2"})

	rejected, err := s.ApplyBulkReorder(ctx, "b1", map[string][]string{"col-1": {t1, t1}})
	require.NoError(t, err)
	assert.ErrorIs(t, rejected["col-1"], ErrNotPermutation)
	assert.Equal(t, []string{t2, t1}, mustBoard(t, s, "b1").Columns["col-1"].TaskIDs)
}

func TestReprioritizeScenario(t *testing.T) {
	seed := emptyBoard("b1")
	seed.Tasks["t1"] = &database.Task{ID: "t1", Title: "one", Priority: database.PriorityLow}
	seed.Tasks["t2"] = &database.Task{ID: "t2", Title: "two", Priority: database.PriorityLow}
	seed.Columns["col-1"].TaskIDs = []string{"t1", "t2"}
	s, _ := setupStore(t, seed)

	out, err := s.ApplyPrioritization(context.Background(), "b1",
		map[string][]string{"col-1": {"t2", "t1"}},
		map[string]database.Priority{"t2": database.PriorityHigh, "t1": database.PriorityLow, "gone": database.PriorityHigh},
	)
	require.NoError(t, err)
	assert.Empty(t, out.Rejected)
	assert.Equal(t, map[string]database.Priority{"t2": database.PriorityLow}, out.Previous)

	b := mustBoard(t, s, "b1")
	assert.Equal(t, []string{"t2", "t1"}, b.Columns["col-1"].TaskIDs)
	assert.Equal(t, database.PriorityHigh, b.Tasks["t2"].Priority)
	assert.Equal(t, database.PriorityLow, b.Tasks["t1"].Priority)
}

func TestBreakdownScenario_AppendsSubtasks(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	tid, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X"})
	existing := []database.Subtask{{ID: "s1", Title: "existing"}}
	_, _, err := s.UpdateTask(ctx, "b1", tid, TaskPatch{Subtasks: &existing})
	require.NoError(t, err)

	task, err := s.AddSubtasks(ctx, "b1", tid, []string{"Draft outline", "Review with team"})
	require.NoError(t, err)

	require.Len(t, task.Subtasks, 3)
	assert.Equal(t, "existing", task.Subtasks[0].Title)
	assert.Equal(t, "Draft outline", task.Subtasks[1].Title)
	assert.Equal(t, "Review with team", task.Subtasks[2].Title)
	for _, sub := range task.Subtasks {
		assert.False(t, sub.Completed)
	}
	assert.NotEqual(t, task.Subtasks[1].ID, task.Subtasks[2].ID)

	_, err = s.AddSubtasks(ctx, "b1", "missing", []string{"a"})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestToggleSubtaskAndAddComment(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	tid, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X"})
	task, err := s.AddSubtasks(ctx, "b1", tid, []string{"a", "  ", "b"})
	require.NoError(t, err)
	require.Len(t, task.Subtasks, 2)

	task, err = s.ToggleSubtask(ctx, "b1", tid, task.Subtasks[1].ID)
	require.NoError(t, err)
	assert.False(t, task.Subtasks[0].Completed)
	assert.True(t, task.Subtasks[1].Completed)

	_, err = s.ToggleSubtask(ctx, "b1", tid, "nope")
	assert.ErrorIs(t, err, ErrSubtaskNotFound)

	c1, _, err := s.AddComment(ctx, "b1", tid, "ALICE", "first")
	require.NoError(t, err)
	c2, task, err := s.AddComment(ctx, "b1", tid, "BRUNO", "second")
	require.NoError(t, err)
	assert.Equal(t, []database.Comment{c1, c2}, task.Comments)
	assert.Equal(t, fixedNow.UnixMilli(), c1.Timestamp)

	_, _, err = s.AddComment(ctx, "b1", tid, "ALICE", "   ")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestPersistRoundTrip(t *testing.T) {
	s, snaps := setupStore(t)
	ctx := context.Background()

	due := fixedNow.UnixMilli()
	three := 3
	t1, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "a", DueDate: &due, Complexity: &three, AssigneeID: "user-1"})
	t2, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "b", Tags: []string{"x"}})
	_, _ = s.AddSubtasks(ctx, "b1", t1, []string{"sub"})
	_, _, _ = s.AddComment(ctx, "b1", t2, "ME", "hello")
	require.NoError(t, s.MoveTask(ctx, "b1", t2))
	second, err := s.CreateBoard(ctx, "Second")
	require.NoError(t, err)
	require.NoError(t, s.SetActiveBoard(ctx, second.ID))

	reloaded := NewStore(snaps, testOptions())
	require.NoError(t, reloaded.Load(ctx, nil))

	assert.Equal(t, s.Boards(), reloaded.Boards())
	assert.Equal(t, second.ID, reloaded.ActiveBoardID())
}

func TestLoad_SeedsOnceAndPersists(t *testing.T) {
	snaps := setupSnapshots(t)
	ctx := context.Background()

	s := NewStore(snaps, testOptions())
	require.NoError(t, s.Load(ctx, []*database.BoardData{emptyBoard("seeded")}))
	assert.Equal(t, "seeded", s.ActiveBoardID())

	data, ok, err := snaps.Get(ctx, database.AllBoardsKey)
	require.NoError(t, err)
	require.True(t, ok)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.EqualValues(t, 1, snap["version"])

	// a different seed is ignored once something is persisted
	again := NewStore(snaps, testOptions())
	require.NoError(t, again.Load(ctx, []*database.BoardData{emptyBoard("other")}))
	assert.Equal(t, "seeded", again.ActiveBoardID())
	assert.Len(t, again.Boards(), 1)
}

func TestLoad_NoSeedCreatesDefaultBoard(t *testing.T) {
	s := NewStore(setupSnapshots(t), testOptions())
	require.NoError(t, s.Load(context.Background(), nil))

	boards := s.Boards()
	require.Len(t, boards, 1)
	assert.Equal(t, []string{"col-1", "col-2", "col-3"}, boards[0].ColumnOrder)
	assert.Equal(t, "Concluído", boards[0].Columns["col-3"].Title)
}

func TestLoad_LegacyArrayAndRepair(t *testing.T) {
	snaps := setupSnapshots(t)
	ctx := context.Background()
	legacy := `[{
		"id": "old",
		"title": "Browser board",
		"tasks": {"task-1": {"id": "task-1", "title": "T", "priority": "high", "tags": [], "createdAt": 5,
			"subtasks": [], "comments": [], "attachments": []}},
		"columns": {
			"col-1": {"id": "col-1", "title": "A Fazer", "taskIds": ["task-1", "ghost"]},
			"col-3": {"id": "col-3", "title": "Concluído", "taskIds": ["task-1"]},
			"col-2": {"id": "col-2", "title": "Em Andamento", "taskIds": []}
		},
		"columnOrder": ["col-1", "col-3", "col-1", "col-unknown"],
		"userStats": {"points": 0, "level": 1, "badges": []}
	}]`
	require.NoError(t, snaps.Put(ctx, database.AllBoardsKey, []byte(legacy)))

	s := NewStore(snaps, testOptions())
	require.NoError(t, s.Load(ctx, nil))

	b := mustBoard(t, s, "old")
	assert.Equal(t, []string{"col-1", "col-3", "col-2"}, b.ColumnOrder)
	assert.Equal(t, []string{"task-1"}, b.Columns["col-1"].TaskIDs)
	assert.Empty(t, b.Columns["col-3"].TaskIDs)
	assert.Equal(t, int64(5), b.Tasks["task-1"].CreatedAt)
	assertInvariants(t, b)
}

func TestLoad_RejectsNewerVersion(t *testing.T) {
	snaps := setupSnapshots(t)
	ctx := context.Background()
	require.NoError(t, snaps.Put(ctx, database.AllBoardsKey, []byte(`{"version": 99, "boards": []}`)))

	err := NewStore(snaps, testOptions()).Load(ctx, nil)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestMutation_FailedWriteKeepsPreviousState(t *testing.T) {
	snaps := &failingSnapshots{failAfter: 2}
	s := NewStore(snaps, testOptions())
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, []*database.BoardData{emptyBoard("b1")}))

	tid, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "kept"})
	require.NoError(t, err)
	before := mustBoard(t, s, "b1")

	_, err = s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "lost"})
	assert.Error(t, err)
	assert.Error(t, s.DeleteTask(ctx, "b1", tid))
	_, err = s.CreateTasks(ctx, "b1", "col-1", []TaskFields{{Title: "a"}, {Title: "b"}})
	assert.Error(t, err)

	assert.Equal(t, before, mustBoard(t, s, "b1"))
}

func TestSubscribe_ReceivesCopies(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	var got []*database.BoardData
	s.Subscribe(func(b *database.BoardData) { got = append(got, b) })

	tid, err := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "X"})
	require.NoError(t, err)
	require.NoError(t, s.MoveTask(ctx, "b1", "unknown")) // no-op, not published
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Tasks, tid)

	got[0].Tasks[tid].Title = "mutated by listener"
	assert.Equal(t, "X", mustBoard(t, s, "b1").Tasks[tid].Title)
}

func TestBoards_CreateAndActivate(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	nb, err := s.CreateBoard(ctx, "Projeto")
	require.NoError(t, err)
	assert.Len(t, s.Boards(), 2)
	assert.Equal(t, "b1", s.ActiveBoardID())

	require.NoError(t, s.SetActiveBoard(ctx, nb.ID))
	assert.Equal(t, nb.ID, s.ActiveBoardID())
	active, err := s.Board("")
	require.NoError(t, err)
	assert.Equal(t, "Projeto", active.Title)

	assert.ErrorIs(t, s.SetActiveBoard(ctx, "missing"), ErrBoardNotFound)
}

func TestStatsAndWorkload(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	past := fixedNow.Add(-time.Hour).UnixMilli()
	a, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "a", AssigneeID: "user-1", DueDate: &past})
	_, _ = s.CreateTask(ctx, "b1", "col-2", TaskFields{Title: "b", AssigneeID: "user-1"})
	c, _ := s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "c", AssigneeID: "user-2", DueDate: &past})
	_, _ = s.CreateTask(ctx, "b1", "col-1", TaskFields{Title: "d"})
	require.NoError(t, s.MoveTask(ctx, "b1", c))

	stats, err := s.Stats("b1")
	require.NoError(t, err)
	assert.Equal(t, Stats{Tasks: 4, Done: 1, Overdue: 1}, stats)

	load, err := s.Workload("b1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"user-1": 2}, load)

	require.NoError(t, s.MoveTask(ctx, "b1", a))
	load, _ = s.Workload("b1")
	assert.Equal(t, map[string]int{"user-1": 1}, load)
}
