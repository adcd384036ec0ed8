package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/CrowderSoup/vieira-boards/database"
)

const (
	defaultTaskTitle = "Nova Tarefa"
	defaultTaskIcon  = "fa-plus"
)

// TaskFields are the initial values of a new task. Zero values take the
// defaults (priority low, empty sequences).
type TaskFields struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    database.Priority `json:"priority"`
	Tags        []string          `json:"tags"`
	DueDate     *int64            `json:"dueDate"`
	Complexity  *int              `json:"complexity"`
	Icon        string            `json:"icon"`
	AssigneeID  string            `json:"assigneeId"`
}

// TaskPatch is a shallow update. Nil fields are left alone; sequence fields
// replace the stored sequence wholesale.
type TaskPatch struct {
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Priority     *database.Priority     `json:"priority"`
	Tags         *[]string              `json:"tags"`
	DueDate      *int64                 `json:"dueDate"`
	ClearDueDate bool                   `json:"clearDueDate"`
	Subtasks     *[]database.Subtask    `json:"subtasks"`
	Comments     *[]database.Comment    `json:"comments"`
	Attachments  *[]database.Attachment `json:"attachments"`
	Complexity   *int                   `json:"complexity"`
	Icon         *string                `json:"icon"`
	AssigneeID   *string                `json:"assigneeId"`
}

func validComplexity(c *int) bool {
	return c == nil || (*c >= 1 && *c <= 5)
}

// normalize validates f and fills in the defaults.
func (f TaskFields) normalize() (TaskFields, error) {
	if f.Priority == "" {
		f.Priority = database.PriorityLow
	}
	if !f.Priority.Valid() {
		return f, fmt.Errorf("%w: priority %q", ErrInvalidField, f.Priority)
	}
	if !validComplexity(f.Complexity) {
		return f, fmt.Errorf("%w: complexity must be between 1 and 5", ErrInvalidField)
	}
	if strings.TrimSpace(f.Title) == "" {
		f.Title = defaultTaskTitle
	}
	if f.Icon == "" {
		f.Icon = defaultTaskIcon
	}
	return f, nil
}

func (s *Store) newTask(f TaskFields) *database.Task {
	t := &database.Task{
		ID:          "task-" + s.opts.NewID(),
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
		Tags:        append([]string{}, f.Tags...),
		CreatedAt:   s.opts.Now().UnixMilli(),
		Subtasks:    []database.Subtask{},
		Comments:    []database.Comment{},
		Attachments: []database.Attachment{},
		Icon:        f.Icon,
		AssigneeID:  f.AssigneeID,
	}
	if f.DueDate != nil {
		d := *f.DueDate
		t.DueDate = &d
	}
	if f.Complexity != nil {
		c := *f.Complexity
		t.Complexity = &c
	}
	return t
}

// CreateTask inserts a task and prepends it to the column.
func (s *Store) CreateTask(ctx context.Context, boardID, columnID string, f TaskFields) (string, error) {
	ids, err := s.CreateTasks(ctx, boardID, columnID, []TaskFields{f})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateTasks inserts all tasks in one transition. They are placed at the
// top of the column in the order given, and their ids are returned in that
// order. Nothing is created if any of them is invalid.
func (s *Store) CreateTasks(ctx context.Context, boardID, columnID string, fields []TaskFields) ([]string, error) {
	if len(fields) == 0 {
		return []string{}, nil
	}
	normalized := make([]TaskFields, len(fields))
	for i, f := range fields {
		n, err := f.normalize()
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	var ids []string
	_, err := s.mutate(ctx, boardID, func(st *boardState) error {
		col, ok := st.data.Columns[columnID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidColumn, columnID)
		}
		ids = make([]string, 0, len(normalized))
		for _, f := range normalized {
			t := s.newTask(f)
			st.data.Tasks[t.ID] = t
			st.columnOf[t.ID] = columnID
			ids = append(ids, t.ID)
		}
		col.TaskIDs = append(append([]string{}, ids...), col.TaskIDs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// uniqueIDs returns the first id of ids that appears more than once.
func uniqueIDs(ids []string) (string, bool) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, false
		}
		seen[id] = true
	}
	return "", true
}

func subtaskIDs(subs []database.Subtask) []string {
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID
	}
	return ids
}

func commentIDs(comments []database.Comment) []string {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return ids
}

func attachmentIDs(attachments []database.Attachment) []string {
	ids := make([]string, len(attachments))
	for i, a := range attachments {
		ids[i] = a.ID
	}
	return ids
}

// UpdateTask merges p into the task. It returns the updated copy and the
// priority the task had before the patch.
func (s *Store) UpdateTask(ctx context.Context, boardID, taskID string, p TaskPatch) (*database.Task, database.Priority, error) {
	if p.Priority != nil && !p.Priority.Valid() {
		return nil, "", fmt.Errorf("%w: priority %q", ErrInvalidField, *p.Priority)
	}
	if !validComplexity(p.Complexity) {
		return nil, "", fmt.Errorf("%w: complexity must be between 1 and 5", ErrInvalidField)
	}

	var previous database.Priority
	b, err := s.mutate(ctx, boardID, func(st *boardState) error {
		t, ok := st.data.Tasks[taskID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		if p.Subtasks != nil {
			if id, ok := uniqueIDs(subtaskIDs(*p.Subtasks)); !ok {
				return fmt.Errorf("%w: duplicate subtask id %q", ErrInvalidField, id)
			}
		}
		if p.Comments != nil {
			if id, ok := uniqueIDs(commentIDs(*p.Comments)); !ok {
				return fmt.Errorf("%w: duplicate comment id %q", ErrInvalidField, id)
			}
		}
		if p.Attachments != nil {
			if id, ok := uniqueIDs(attachmentIDs(*p.Attachments)); !ok {
				return fmt.Errorf("%w: duplicate attachment id %q", ErrInvalidField, id)
			}
		}
		previous = t.Priority
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.Tags != nil {
			t.Tags = append([]string{}, (*p.Tags)...)
		}
		if p.ClearDueDate {
			t.DueDate = nil
		} else if p.DueDate != nil {
			d := *p.DueDate
			t.DueDate = &d
		}
		if p.Subtasks != nil {
			t.Subtasks = append([]database.Subtask{}, (*p.Subtasks)...)
		}
		if p.Comments != nil {
			t.Comments = append([]database.Comment{}, (*p.Comments)...)
		}
		if p.Attachments != nil {
			t.Attachments = append([]database.Attachment{}, (*p.Attachments)...)
		}
		if p.Complexity != nil {
			c := *p.Complexity
			t.Complexity = &c
		}
		if p.Icon != nil {
			t.Icon = *p.Icon
		}
		if p.AssigneeID != nil {
			t.AssigneeID = *p.AssigneeID
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return b.Tasks[taskID], previous, nil
}

// DeleteTask removes the task from tasks and from its column in one transition.
func (s *Store) DeleteTask(ctx context.Context, boardID, taskID string) error {
	_, err := s.mutate(ctx, boardID, func(st *boardState) error {
		if _, ok := st.data.Tasks[taskID]; !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		delete(st.data.Tasks, taskID)
		if cid, ok := st.columnOf[taskID]; ok {
			col := st.data.Columns[cid]
			col.TaskIDs = removeID(col.TaskIDs, taskID)
			delete(st.columnOf, taskID)
		}
		return nil
	})
	return err
}

// MoveTask toggles a task between the done column and the active column.
// A task that is in no column is left alone.
func (s *Store) MoveTask(ctx context.Context, boardID, taskID string) error {
	_, err := s.mutate(ctx, boardID, func(st *boardState) error {
		from, ok := st.columnOf[taskID]
		if !ok {
			return errNoChange
		}
		to := s.opts.DoneColumn
		if from == s.opts.DoneColumn {
			to = s.opts.ActiveColumn
		}
		if _, ok := st.data.Columns[to]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidColumn, to)
		}
		st.move(taskID, from, to, 0)
		return nil
	})
	return err
}

// MoveTaskTo moves a task to position index of columnID. index is clamped
// to the bounds of the target column.
func (s *Store) MoveTaskTo(ctx context.Context, boardID, taskID, columnID string, index int) error {
	_, err := s.mutate(ctx, boardID, func(st *boardState) error {
		if _, ok := st.data.Tasks[taskID]; !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		if _, ok := st.data.Columns[columnID]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidColumn, columnID)
		}
		st.move(taskID, st.columnOf[taskID], columnID, index)
		return nil
	})
	return err
}

// move removes taskID from column from (if any) and inserts it into column to.
func (st *boardState) move(taskID, from, to string, index int) {
	if from != "" {
		src := st.data.Columns[from]
		src.TaskIDs = removeID(src.TaskIDs, taskID)
	}
	dst := st.data.Columns[to]
	if index < 0 {
		index = 0
	}
	if index > len(dst.TaskIDs) {
		index = len(dst.TaskIDs)
	}
	ids := make([]string, 0, len(dst.TaskIDs)+1)
	ids = append(ids, dst.TaskIDs[:index]...)
	ids = append(ids, taskID)
	ids = append(ids, dst.TaskIDs[index:]...)
	dst.TaskIDs = ids
	st.columnOf[taskID] = to
}

func (s *Store) ToggleSubtask(ctx context.Context, boardID, taskID, subtaskID string) (*database.Task, error) {
	b, err := s.mutate(ctx, boardID, func(st *boardState) error {
		t, ok := st.data.Tasks[taskID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].Completed = !t.Subtasks[i].Completed
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrSubtaskNotFound, subtaskID)
	})
	if err != nil {
		return nil, err
	}
	return b.Tasks[taskID], nil
}

// AddSubtasks appends one incomplete subtask per non-blank title. Existing
// subtasks are kept.
func (s *Store) AddSubtasks(ctx context.Context, boardID, taskID string, titles []string) (*database.Task, error) {
	b, err := s.mutate(ctx, boardID, func(st *boardState) error {
		t, ok := st.data.Tasks[taskID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		added := 0
		for _, title := range titles {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			t.Subtasks = append(t.Subtasks, database.Subtask{ID: s.opts.NewID(), Title: title})
			added++
		}
		if added == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Tasks[taskID], nil
}

// AddComment appends a comment to the task.
func (s *Store) AddComment(ctx context.Context, boardID, taskID, author, text string) (database.Comment, *database.Task, error) {
	if strings.TrimSpace(text) == "" {
		return database.Comment{}, nil, fmt.Errorf("%w: comment text is empty", ErrInvalidField)
	}
	c := database.Comment{
		ID:        s.opts.NewID(),
		Text:      text,
		Author:    author,
		Timestamp: s.opts.Now().UnixMilli(),
	}
	b, err := s.mutate(ctx, boardID, func(st *boardState) error {
		t, ok := st.data.Tasks[taskID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		t.Comments = append(t.Comments, c)
		return nil
	})
	if err != nil {
		return database.Comment{}, nil, err
	}
	return c, b.Tasks[taskID], nil
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
