package handlers

import (
	"net/http"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/services"
	"github.com/gorilla/mux"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Store          *board.Store
	Auth           *services.AuthService
	Gateway        *services.Gateway
	Notifier       *services.Notifier
	Hub            *services.Hub
	AllowedOrigins []string
	// StaticDir, when set, is served at / for the presentation layer.
	StaticDir string
}

func NewRouter(d Deps) *mux.Router {
	authHandler := NewAuthHandler(d.Auth)
	dataHandler := NewDataHandler(d.Store, d.Auth, d.Notifier, d.Hub, d.AllowedOrigins)
	aiHandler := NewAIHandler(d.Store, d.Gateway, d.Auth, d.Notifier)
	exportHandler := NewExportHandler(d.Store)
	authMiddleware := NewAuthMiddleware(d.Auth)

	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/verify", authHandler.VerifyToken).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Auth)

	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/me", authHandler.UpdateMe).Methods("PATCH")
	api.HandleFunc("/me/notifications", authHandler.UpdateNotifications).Methods("PATCH")

	api.HandleFunc("/boards", dataHandler.ListBoards).Methods("GET")
	api.HandleFunc("/boards", dataHandler.CreateBoard).Methods("POST")
	api.HandleFunc("/boards/{id}", dataHandler.GetBoard).Methods("GET")
	api.HandleFunc("/boards/{id}/activate", dataHandler.ActivateBoard).Methods("POST")
	api.HandleFunc("/boards/{id}/tasks", dataHandler.CreateTask).Methods("POST")
	api.HandleFunc("/boards/{id}/tasks/{taskId}", dataHandler.UpdateTask).Methods("PATCH")
	api.HandleFunc("/boards/{id}/tasks/{taskId}", dataHandler.DeleteTask).Methods("DELETE")
	api.HandleFunc("/boards/{id}/tasks/{taskId}/toggle", dataHandler.ToggleTask).Methods("POST")
	api.HandleFunc("/boards/{id}/tasks/{taskId}/move", dataHandler.MoveTask).Methods("POST")
	api.HandleFunc("/boards/{id}/tasks/{taskId}/subtasks/{subId}/toggle", dataHandler.ToggleSubtask).Methods("POST")
	api.HandleFunc("/boards/{id}/tasks/{taskId}/comments", dataHandler.AddComment).Methods("POST")

	// AI routes
	api.HandleFunc("/boards/{id}/insight", aiHandler.Insight).Methods("GET")
	api.HandleFunc("/boards/{id}/tasks/{taskId}/breakdown", aiHandler.Breakdown).Methods("POST")
	api.HandleFunc("/boards/{id}/tasks/{taskId}/deadline", aiHandler.Deadline).Methods("POST")
	api.HandleFunc("/boards/{id}/prioritize", aiHandler.Prioritize).Methods("POST")
	api.HandleFunc("/boards/{id}/generate", aiHandler.Generate).Methods("POST")

	api.HandleFunc("/boards/{id}/export.xlsx", exportHandler.Spreadsheet).Methods("GET")

	// WebSocket route for board snapshots
	api.HandleFunc("/ws", dataHandler.HandleWebSocket)

	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return r
}
