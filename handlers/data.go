package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/CrowderSoup/vieira-boards/services"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// DataHandler serves the boards and their tasks.
type DataHandler struct {
	store       *board.Store
	authService *services.AuthService
	notifier    *services.Notifier
	hub         *services.Hub
	upgrader    websocket.Upgrader
}

func NewDataHandler(store *board.Store, authService *services.AuthService, notifier *services.Notifier, hub *services.Hub, allowedOrigins []string) *DataHandler {
	return &DataHandler{
		store:       store,
		authService: authService,
		notifier:    notifier,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin allows every origin when the list is empty or contains "*".
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func (h *DataHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"activeBoardId": h.store.ActiveBoardID(),
		"boards":        h.store.Boards(),
	})
}

func (h *DataHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Title) == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	b, err := h.store.CreateBoard(r.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *DataHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Board(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *DataHandler) ActivateBoard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.SetActiveBoard(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"activeBoardId": id})
}

// currentUser returns the session user, or nil after a logout.
func (h *DataHandler) currentUser() *database.User {
	u, err := h.authService.CurrentUser()
	if err != nil {
		return nil
	}
	return u
}

func (h *DataHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnID string `json:"columnId"`
		board.TaskFields
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.ColumnID == "" {
		req.ColumnID = board.ActiveColumnID
	}
	if req.AssigneeID == "" {
		if u := h.currentUser(); u != nil {
			req.AssigneeID = u.ID
		}
	}

	boardID := mux.Vars(r)["id"]
	taskID, err := h.store.CreateTask(r.Context(), boardID, req.ColumnID, req.TaskFields)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeTask(w, http.StatusCreated, boardID, taskID)
}

func (h *DataHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch board.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	task, previous, err := h.store.UpdateTask(r.Context(), vars["id"], vars["taskId"], patch)
	if err != nil {
		writeError(w, err)
		return
	}
	h.notifier.PriorityRaised(h.currentUser(), task, previous, "Tarefa atualizada")
	writeJSON(w, http.StatusOK, task)
}

func (h *DataHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.store.DeleteTask(r.Context(), vars["id"], vars["taskId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask moves a task in or out of the done column.
func (h *DataHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.store.MoveTask(r.Context(), vars["id"], vars["taskId"]); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.store.Board(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *DataHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnID string `json:"columnId"`
		Index    int    `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ColumnID == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	if err := h.store.MoveTaskTo(r.Context(), vars["id"], vars["taskId"], req.ColumnID, req.Index); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.store.Board(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *DataHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	task, err := h.store.ToggleSubtask(r.Context(), vars["id"], vars["taskId"], vars["subId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// AddComment appends a comment by the session user and notifies them when
// the text mentions them.
func (h *DataHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		Author string `json:"author"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	user := h.currentUser()
	if req.Author == "" && user != nil {
		req.Author = user.Name
	}

	vars := mux.Vars(r)
	comment, task, err := h.store.AddComment(r.Context(), vars["id"], vars["taskId"], req.Author, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	if services.MentionsUser(req.Text, user) {
		h.notifier.Mentioned(user, task, req.Author, req.Text)
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *DataHandler) writeTask(w http.ResponseWriter, status int, boardID, taskID string) {
	b, err := h.store.Board(boardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, b.Tasks[taskID])
}

// HandleWebSocket upgrades the connection and subscribes it to board
// snapshots. The active board is sent first.
func (h *DataHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &services.Client{
		Hub:   h.hub,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Email: email,
	}
	if b, err := h.store.Board(""); err == nil {
		if msg, err := json.Marshal(services.WebSocketMessage{Type: services.MessageBoard, Data: b}); err == nil {
			client.Send <- msg
		}
	}

	h.hub.Register(client)
	log.Printf("WebSocket client registered: %s", email)

	go client.WritePump()
	go client.ReadPump()
}
