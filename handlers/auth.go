package handlers

import (
	"net/http"

	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/CrowderSoup/vieira-boards/services"
)

// AuthHandler handles the session endpoints
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login starts the local session. Any non-empty email and password pair is
// accepted.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// VerifyToken checks if a JWT token is valid
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := bearerToken(r)
	if !ok {
		http.Error(w, "Missing authorization header", http.StatusUnauthorized)
		return
	}

	email, err := h.authService.VerifyJWT(tokenString)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"email": email,
		"state": "valid",
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.CurrentUser()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe changes the user's language.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lang database.Language `json:"lang"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Lang == "" {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	user, err := h.authService.SetLanguage(r.Context(), req.Lang)
	if err != nil {
		if err == services.ErrNotLoggedIn {
			writeError(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var patch services.NotificationPatch
	if err := decodeJSON(r, &patch); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	user, err := h.authService.UpdateNotificationSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
