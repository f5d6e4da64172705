package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/service"
	"github.com/Ernous/BoxChat/internal/storage"
)

type UserHandler struct {
	accounts *service.AccountService
	sessions storage.SessionStore
}

func NewUserHandler(accounts *service.AccountService, sessions storage.SessionStore) *UserHandler {
	return &UserHandler{accounts: accounts, sessions: sessions}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetProfile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetPublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	Bio        string `json:"bio"`
	AvatarURL  string `json:"avatar_url"`
	Searchable bool   `json:"searchable"`
	Listable   bool   `json:"listable"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := h.accounts.UpdateProfile(r.Context(), userID, req.Bio, req.AvatarURL, req.Searchable, req.Listable); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	users, err := h.accounts.SearchUsers(r.Context(), middleware.GetUserID(r.Context()), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type PresenceModeRequest struct {
	Status model.PresenceStatus `json:"status"`
}

func (h *UserHandler) SetPresenceMode(w http.ResponseWriter, r *http.Request) {
	var req PresenceModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.accounts.SetPresenceMode(r.Context(), middleware.GetUserID(r.Context()), req.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount removes the account and everything tied to it, then revokes
// all of the user's sessions so signed requests stop verifying immediately.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.accounts.DeleteAccount(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.sessions.DeleteUserSessions(r.Context(), userID); err != nil {
		logger.Errorf("UserHandler.DeleteAccount: revoke sessions for %s: %v", userID, err)
	}
	w.WriteHeader(http.StatusNoContent)
}
