package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/database"
	"google.golang.org/genai"
)

const (
	geminiModel    = "gemini-3-flash-preview"
	geminiProModel = "gemini-3-pro-preview"
	geminiVersion  = "v1beta"
)

var (
	// ErrAIRequestFailed covers transport errors, non-200 responses and
	// responses that are not the requested JSON shape.
	ErrAIRequestFailed = errors.New("AI request failed")
	// ErrMalformedAIResult is returned (wrapped together with
	// ErrAIRequestFailed) when a well-formed response fails validation.
	ErrMalformedAIResult = errors.New("malformed AI result")
)

// Fallback insight texts shown when the summary call fails.
const (
	InsightFallbackPT = "Workspace otimizado."
	InsightFallbackEN = "No insights available yet."
)

func InsightFallback(lang database.Language) string {
	if lang == database.LangPT {
		return InsightFallbackPT
	}
	return InsightFallbackEN
}

type GeminiConfig struct {
	APIKey string
	// BaseURL overrides the API host, e.g. for a local test server.
	BaseURL    string
	Model      string
	ProModel   string
	HTTPClient *http.Client
	Now        func() time.Time
}

// Gateway wraps a genai client. Every call is a single generateContent
// round trip with no retries.
type Gateway struct {
	client   *genai.Client
	model    string
	proModel string
	now      func() time.Time
}

// NewGateway builds the genai client. Without an API key the gateway is
// still returned, but every call fails with ErrAIRequestFailed.
func NewGateway(ctx context.Context, cfg GeminiConfig) (*Gateway, error) {
	g := &Gateway{
		model:    cfg.Model,
		proModel: cfg.ProModel,
		now:      cfg.Now,
	}
	if g.model == "" {
		g.model = geminiModel
	}
	if g.proModel == "" {
		g.proModel = geminiProModel
	}
	if g.now == nil {
		g.now = time.Now
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: geminiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func requestFailed(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrAIRequestFailed, fmt.Sprintf(format, args...))
	log.Printf("%v", err)
	return err
}

func malformed(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	log.Printf("malformed AI result: %s", msg)
	return fmt.Errorf("%w: %w: %s", ErrAIRequestFailed, ErrMalformedAIResult, msg)
}

// generate sends prompt to model and returns the text of the first
// candidate. A nil schema asks for free text.
func (g *Gateway) generate(ctx context.Context, model, prompt string, schema *genai.Schema) (string, error) {
	if g.client == nil {
		return "", requestFailed("GEMINI_API_KEY not set")
	}

	var config *genai.GenerateContentConfig
	if schema != nil {
		config = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", requestFailed("Gemini API error: %v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", requestFailed("no candidates returned")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", requestFailed("empty candidate")
	}
	return text, nil
}

// generateJSON is generate followed by a strict decode of the candidate
// text into out.
func (g *Gateway) generateJSON(ctx context.Context, model, prompt string, schema *genai.Schema, out any) error {
	text, err := g.generate(ctx, model, prompt, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return requestFailed("failed to parse JSON result: %v", err)
	}
	return nil
}

func stringSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString}
}

func stringListSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: stringSchema()}
}

func prioritySchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: priorityEnum}
}

var priorityEnum = []string{string(database.PriorityLow), string(database.PriorityMedium), string(database.PriorityHigh)}

// SummarizeProductivity returns a short free-text insight about the board
// counts. Callers show InsightFallback on error.
func (g *Gateway) SummarizeProductivity(ctx context.Context, stats board.Stats, lang database.Language) (string, error) {
	boardContext, err := json.Marshal(stats)
	if err != nil {
		return "", requestFailed("failed to marshal board context: %v", err)
	}
	prompt := fmt.Sprintf("Analyze the following Kanban board status (JSON) and give a 2-sentence productivity insight in %s. Mention if tasks are overdue: %s",
		lang.Name(), boardContext)
	return g.generate(ctx, g.model, prompt, nil)
}

// BreakdownTask asks for 3-5 subtask titles. Blank titles are dropped.
func (g *Gateway) BreakdownTask(ctx context.Context, title, description string, lang database.Language) ([]string, error) {
	prompt := fmt.Sprintf("Break down this task into 3-5 small, actionable subtask titles in %s: Task: %s. Description: %s. Return as a JSON array of strings.",
		lang.Name(), title, description)
	var steps []string
	if err := g.generateJSON(ctx, g.model, prompt, stringListSchema(), &steps); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// PrioritizationResult is a validated reprioritization suggestion. Every
// column order is a permutation of the ids that were sent for that column.
type PrioritizationResult struct {
	ColumnOrders    map[string][]string          `json:"columnOrders"`
	PriorityChanges map[string]database.Priority `json:"priorityChanges"`
	Insight         string                       `json:"insight"`
}

type prioritizationTask struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Priority   database.Priority `json:"priority"`
	DueDate    *int64            `json:"dueDate,omitempty"`
	Tags       []string          `json:"tags"`
	Complexity int               `json:"complexity"`
	Column     string            `json:"col,omitempty"`
}

type prioritizationWire struct {
	ColumnOrders    *map[string][]string `json:"columnOrders"`
	PriorityChanges *map[string]string   `json:"priorityChanges"`
	Insight         *string              `json:"insight"`
}

// ReprioritizeBoard asks the pro model to reorder each column and relabel
// priorities by criteria. An unknown priority fails the whole result; a
// column order that does not match the ids sent is dropped. A board with no
// tasks gets an empty result without a call.
func (g *Gateway) ReprioritizeBoard(ctx context.Context, b *database.BoardData, criteria string, lang database.Language) (*PrioritizationResult, error) {
	tasks := make([]prioritizationTask, 0, len(b.Tasks))
	for _, cid := range b.ColumnOrder {
		col, ok := b.Columns[cid]
		if !ok {
			continue
		}
		for _, tid := range col.TaskIDs {
			t, ok := b.Tasks[tid]
			if !ok {
				continue
			}
			complexity := 3
			if t.Complexity != nil {
				complexity = *t.Complexity
			}
			tasks = append(tasks, prioritizationTask{
				ID:         t.ID,
				Title:      t.Title,
				Priority:   t.Priority,
				DueDate:    t.DueDate,
				Tags:       t.Tags,
				Complexity: complexity,
				Column:     cid,
			})
		}
	}
	if len(tasks) == 0 {
		return &PrioritizationResult{
			ColumnOrders:    map[string][]string{},
			PriorityChanges: map[string]database.Priority{},
		}, nil
	}
	boardContext, err := json.Marshal(map[string]any{"tasks": tasks, "columns": b.Columns})
	if err != nil {
		return nil, requestFailed("failed to marshal board context: %v", err)
	}

	prompt := fmt.Sprintf(`As a project management expert, reorder the tasks in each column of this Kanban board based on these criteria: "%s".
The board data: %s.
Return a JSON object with:
1. 'columnOrders': record of column IDs to an array of task IDs in the new optimized order.
2. 'priorityChanges': record of task IDs to their new suggested Priority (low, medium, high).
3. 'insight': A 1-sentence explanation in %s of why you reordered them this way.`, criteria, boardContext, lang.Name())
	// genai schemas have no additionalProperties, so the known columns and
	// tasks become the properties of the two maps.
	columnOrders := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	for cid := range b.Columns {
		columnOrders.Properties[cid] = stringListSchema()
	}
	priorityChanges := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	for _, t := range tasks {
		priorityChanges.Properties[t.ID] = prioritySchema()
	}
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"columnOrders":    columnOrders,
			"priorityChanges": priorityChanges,
			"insight":         stringSchema(),
		},
		Required: []string{"columnOrders", "priorityChanges", "insight"},
	}

	var wire prioritizationWire
	if err := g.generateJSON(ctx, g.proModel, prompt, schema, &wire); err != nil {
		return nil, err
	}
	if wire.ColumnOrders == nil || wire.PriorityChanges == nil || wire.Insight == nil {
		return nil, requestFailed("prioritization result is missing required fields")
	}

	result := &PrioritizationResult{
		ColumnOrders:    make(map[string][]string),
		PriorityChanges: make(map[string]database.Priority),
		Insight:         *wire.Insight,
	}
	for tid, p := range *wire.PriorityChanges {
		pr := database.Priority(p)
		if !pr.Valid() {
			return nil, malformed("task %s has unknown priority %q", tid, p)
		}
		result.PriorityChanges[tid] = pr
	}
	for cid, ids := range *wire.ColumnOrders {
		col, ok := b.Columns[cid]
		if !ok {
			log.Printf("malformed AI result: unknown column %s dropped", cid)
			continue
		}
		if !sameIDs(col.TaskIDs, ids) {
			log.Printf("malformed AI result: column %s order is not a permutation of its tasks, dropped", cid)
			continue
		}
		result.ColumnOrders[cid] = ids
	}
	return result, nil
}

// sameIDs reports whether b holds exactly the ids of a, in any order.
func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}
	return true
}

type DeadlinePrediction struct {
	SuggestedDate time.Time `json:"suggestedDate"`
	Reasoning     string    `json:"reasoning"`
}

// parseAIDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseAIDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// PredictDeadline suggests a completion date for task given the number of
// open tasks per assignee. The result is advisory and never applied.
func (g *Gateway) PredictDeadline(ctx context.Context, task *database.Task, workload map[string]int, lang database.Language) (*DeadlinePrediction, error) {
	taskContext, err := json.Marshal(map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"priority":    task.Priority,
		"tags":        task.Tags,
		"assigneeId":  task.AssigneeID,
	})
	if err != nil {
		return nil, requestFailed("failed to marshal task: %v", err)
	}
	workloadContext, err := json.Marshal(workload)
	if err != nil {
		return nil, requestFailed("failed to marshal workload: %v", err)
	}

	prompt := fmt.Sprintf(`Predict a realistic completion date for this task based on team workload and priority.
Task to predict: %s
Team workload (number of active tasks per user): %s
Current date: %s
Language for reasoning: %s
Return as a JSON object with 'suggestedDate' (ISO string) and 'reasoning' (1-sentence).`,
		taskContext, workloadContext, g.now().UTC().Format(time.RFC3339), lang.Name())
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestedDate": stringSchema(),
			"reasoning":     stringSchema(),
		},
		Required: []string{"suggestedDate", "reasoning"},
	}

	var wire struct {
		SuggestedDate *string `json:"suggestedDate"`
		Reasoning     *string `json:"reasoning"`
	}
	if err := g.generateJSON(ctx, g.model, prompt, schema, &wire); err != nil {
		return nil, err
	}
	if wire.SuggestedDate == nil || wire.Reasoning == nil {
		return nil, requestFailed("deadline result is missing required fields")
	}
	date, err := parseAIDate(*wire.SuggestedDate)
	if err != nil {
		return nil, malformed("suggested date %q is not a date", *wire.SuggestedDate)
	}
	return &DeadlinePrediction{SuggestedDate: date, Reasoning: *wire.Reasoning}, nil
}

// TaskSuggestion is one task proposed by GenerateTasks.
type TaskSuggestion struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    database.Priority `json:"priority"`
	Tags        []string          `json:"tags"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
}

// GenerateTasks turns a goal into a list of actionable tasks.
func (g *Gateway) GenerateTasks(ctx context.Context, goal string, lang database.Language) ([]TaskSuggestion, error) {
	prompt := fmt.Sprintf(`Generate a list of actionable tasks in %s for the following goal: "%s". Return as a JSON array. Each task should have a title, description, priority (low, medium, high), 1-2 tags, and an optional dueDate (ISO 8601 string).`,
		lang.Name(), goal)
	schema := &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":       stringSchema(),
				"description": stringSchema(),
				"priority":    prioritySchema(),
				"tags":        stringListSchema(),
				"dueDate":     stringSchema(),
			},
			Required: []string{"title", "description", "priority", "tags"},
		},
	}

	var wire []struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Priority    string   `json:"priority"`
		Tags        []string `json:"tags"`
		DueDate     string   `json:"dueDate"`
	}
	if err := g.generateJSON(ctx, g.model, prompt, schema, &wire); err != nil {
		return nil, err
	}

	out := make([]TaskSuggestion, 0, len(wire))
	for i, w := range wire {
		p := database.Priority(w.Priority)
		if !p.Valid() {
			return nil, malformed("suggestion %d has unknown priority %q", i, w.Priority)
		}
		s := TaskSuggestion{
			Title:       strings.TrimSpace(w.Title),
			Description: w.Description,
			Priority:    p,
			Tags:        append([]string{}, w.Tags...),
		}
		if w.DueDate != "" {
			d, err := parseAIDate(w.DueDate)
			if err != nil {
				return nil, malformed("suggestion %d due date %q is not a date", i, w.DueDate)
			}
			s.DueDate = &d
		}
		out = append(out, s)
	}
	return out, nil
}
