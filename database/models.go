package database

// Priority is the urgency label of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Language selects the language of AI output and notification text.
type Language string

const (
	LangPT Language = "pt"
	LangEN Language = "en"
)

// Name returns the English name of the language, as used in prompts.
func (l Language) Name() string {
	if l == LangPT {
		return "Portuguese"
	}
	return "English"
}

type NotificationSettings struct {
	SlackEnabled         bool   `json:"slackEnabled" yaml:"slackEnabled"`
	SlackWebhookURL      string `json:"slackWebhookUrl,omitempty" yaml:"slackWebhookUrl,omitempty"`
	WhatsAppEnabled      bool   `json:"whatsappEnabled" yaml:"whatsappEnabled"`
	WhatsAppNumber       string `json:"whatsappNumber,omitempty" yaml:"whatsappNumber,omitempty"`
	NotifyOnHighPriority bool   `json:"notifyOnHighPriority" yaml:"notifyOnHighPriority"`
	NotifyOnMentions     bool   `json:"notifyOnMentions" yaml:"notifyOnMentions"`
}

type User struct {
	ID                  string               `json:"id" yaml:"id"`
	Name                string               `json:"name" yaml:"name"`
	Email               string               `json:"email" yaml:"email"`
	PhotoURL            string               `json:"photoURL,omitempty" yaml:"photoURL,omitempty"`
	Role                Role                 `json:"role" yaml:"role"`
	Lang                Language             `json:"lang" yaml:"lang"`
	Points              int                  `json:"points" yaml:"points"`
	GoogleCalendarSync  bool                 `json:"googleCalendarSync,omitempty" yaml:"googleCalendarSync,omitempty"`
	OutlookCalendarSync bool                 `json:"outlookCalendarSync,omitempty" yaml:"outlookCalendarSync,omitempty"`
	Notifications       NotificationSettings `json:"notifications" yaml:"notifications"`
}

type Attachment struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Size string `json:"size" yaml:"size"`
	URL  string `json:"url" yaml:"url"`
}

// Comment is append-only. Author is a display name, not a user reference.
type Comment struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	Author    string `json:"author" yaml:"author"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

type Subtask struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Task timestamps are milliseconds since the Unix epoch.
type Task struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Priority    Priority     `json:"priority" yaml:"priority"`
	Tags        []string     `json:"tags" yaml:"tags"`
	CreatedAt   int64        `json:"createdAt" yaml:"createdAt"`
	DueDate     *int64       `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Subtasks    []Subtask    `json:"subtasks" yaml:"subtasks"`
	Complexity  *int         `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	Comments    []Comment    `json:"comments" yaml:"comments"`
	Icon        string       `json:"icon,omitempty" yaml:"icon,omitempty"`
	Attachments []Attachment `json:"attachments" yaml:"attachments"`
	AssigneeID  string       `json:"assigneeId,omitempty" yaml:"assigneeId,omitempty"`
}

// Column.TaskIDs is the authoritative order of the column.
type Column struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	TaskIDs []string `json:"taskIds" yaml:"taskIds"`
}

type UserStats struct {
	Points int      `json:"points" yaml:"points"`
	Level  int      `json:"level" yaml:"level"`
	Badges []string `json:"badges" yaml:"badges"`
}

type BoardData struct {
	ID          string             `json:"id" yaml:"id"`
	Title       string             `json:"title" yaml:"title"`
	Tasks       map[string]*Task   `json:"tasks" yaml:"tasks"`
	Columns     map[string]*Column `json:"columns" yaml:"columns"`
	ColumnOrder []string           `json:"columnOrder" yaml:"columnOrder"`
	UserStats   UserStats          `json:"userStats" yaml:"userStats"`
	Team        []User             `json:"team,omitempty" yaml:"team,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = append([]string{}, t.Tags...)
	c.Subtasks = append([]Subtask{}, t.Subtasks...)
	c.Comments = append([]Comment{}, t.Comments...)
	c.Attachments = append([]Attachment{}, t.Attachments...)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Complexity != nil {
		x := *t.Complexity
		c.Complexity = &x
	}
	return &c
}

// Clone returns a deep copy of the board. Nil maps and slices come back empty.
func (b *BoardData) Clone() *BoardData {
	c := &BoardData{
		ID:          b.ID,
		Title:       b.Title,
		Tasks:       make(map[string]*Task, len(b.Tasks)),
		Columns:     make(map[string]*Column, len(b.Columns)),
		ColumnOrder: append([]string{}, b.ColumnOrder...),
		UserStats: UserStats{
			Points: b.UserStats.Points,
			Level:  b.UserStats.Level,
			Badges: append([]string{}, b.UserStats.Badges...),
		},
	}
	for id, t := range b.Tasks {
		if t != nil {
			c.Tasks[id] = t.Clone()
		}
	}
	for id, col := range b.Columns {
		if col == nil {
			continue
		}
		cc := *col
		cc.TaskIDs = append([]string{}, col.TaskIDs...)
		c.Columns[id] = &cc
	}
	if len(b.Team) > 0 {
		c.Team = append([]User{}, b.Team...)
	}
	return c
}

// ColumnOf returns the id of the column holding taskID by scanning every
// column, or "" when no column references it.
func (b *BoardData) ColumnOf(taskID string) string {
	for cid, col := range b.Columns {
		if col == nil {
			continue
		}
		for _, id := range col.TaskIDs {
			if id == taskID {
				return cid
			}
		}
	}
	return ""
}
