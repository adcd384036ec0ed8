package handlers

import (
	"net/http"
	"strings"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/CrowderSoup/vieira-boards/services"
	"github.com/gorilla/mux"
)

// AIHandler runs the AI features. Gateway calls happen outside the store
// lock; a successful result is applied as one store mutation.
type AIHandler struct {
	store       *board.Store
	gateway     *services.Gateway
	authService *services.AuthService
	notifier    *services.Notifier
}

func NewAIHandler(store *board.Store, gateway *services.Gateway, authService *services.AuthService, notifier *services.Notifier) *AIHandler {
	return &AIHandler{store: store, gateway: gateway, authService: authService, notifier: notifier}
}

func (h *AIHandler) currentUser() *database.User {
	u, err := h.authService.CurrentUser()
	if err != nil {
		return nil
	}
	return u
}

func (h *AIHandler) lang() database.Language {
	if u := h.currentUser(); u != nil && u.Lang != "" {
		return u.Lang
	}
	return database.LangPT
}

// Insight never fails on the AI side: the fallback text replaces a failed call.
func (h *AIHandler) Insight(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	lang := h.lang()
	insight, err := h.gateway.SummarizeProductivity(r.Context(), stats, lang)
	fallback := err != nil
	if fallback {
		insight = services.InsightFallback(lang)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insight":  insight,
		"fallback": fallback,
		"stats":    stats,
	})
}

func (h *AIHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	task, err := h.task(vars["id"], vars["taskId"])
	if err != nil {
		writeError(w, err)
		return
	}

	steps, err := h.gateway.BreakdownTask(r.Context(), task.Title, task.Description, h.lang())
	if err != nil {
		http.Error(w, msgAIError, http.StatusBadGateway)
		return
	}

	updated, err := h.store.AddSubtasks(r.Context(), vars["id"], vars["taskId"], steps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Deadline returns an advisory prediction; nothing is stored.
func (h *AIHandler) Deadline(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	task, err := h.task(vars["id"], vars["taskId"])
	if err != nil {
		writeError(w, err)
		return
	}
	workload, err := h.store.Workload(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	prediction, err := h.gateway.PredictDeadline(r.Context(), task, workload, h.lang())
	if err != nil {
		http.Error(w, msgDeadlineError, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

func (h *AIHandler) Prioritize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Criteria string `json:"criteria"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Criteria) == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	boardID := mux.Vars(r)["id"]
	b, err := h.store.Board(boardID)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.gateway.ReprioritizeBoard(r.Context(), b, req.Criteria, h.lang())
	if err != nil {
		http.Error(w, msgAIError, http.StatusBadGateway)
		return
	}

	out, err := h.store.ApplyPrioritization(r.Context(), boardID, result.ColumnOrders, result.PriorityChanges)
	if err != nil {
		writeError(w, err)
		return
	}
	reasons := make(map[string]string, len(out.Rejected))
	for cid, reason := range out.Rejected {
		reasons[cid] = reason.Error()
	}
	updated, err := h.store.Board(boardID)
	if err != nil {
		writeError(w, err)
		return
	}
	user := h.currentUser()
	for tid, previous := range out.Previous {
		h.notifier.PriorityRaised(user, updated.Tasks[tid], previous, "Prioridade alterada pela IA")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insight":  result.Insight,
		"rejected": reasons,
		"board":    updated,
	})
}

// Generate creates one task per suggestion, in the order suggested, as a
// single store mutation.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal     string `json:"goal"`
		ColumnID string `json:"columnId"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Goal) == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.ColumnID == "" {
		req.ColumnID = board.ActiveColumnID
	}
	boardID := mux.Vars(r)["id"]
	if _, err := h.store.Board(boardID); err != nil {
		writeError(w, err)
		return
	}

	suggestions, err := h.gateway.GenerateTasks(r.Context(), req.Goal, h.lang())
	if err != nil {
		http.Error(w, msgAIError, http.StatusBadGateway)
		return
	}

	fields := make([]board.TaskFields, 0, len(suggestions))
	for _, s := range suggestions {
		f := board.TaskFields{
			Title:       s.Title,
			Description: s.Description,
			Priority:    s.Priority,
			Tags:        s.Tags,
		}
		if s.DueDate != nil {
			ms := s.DueDate.UnixMilli()
			f.DueDate = &ms
		}
		fields = append(fields, f)
	}
	ids, err := h.store.CreateTasks(r.Context(), boardID, req.ColumnID, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"taskIds": ids})
}

func (h *AIHandler) task(boardID, taskID string) (*database.Task, error) {
	b, err := h.store.Board(boardID)
	if err != nil {
		return nil, err
	}
	t, ok := b.Tasks[taskID]
	if !ok {
		return nil, board.ErrTaskNotFound
	}
	return t, nil
}
