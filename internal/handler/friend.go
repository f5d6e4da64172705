package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/service"
)

type FriendHandler struct {
	friends *service.FriendService
}

func NewFriendHandler(friends *service.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

type FriendRequestRequest struct {
	Username string `json:"username"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	fr, err := h.friends.SendRequest(r.Context(), middleware.GetUserID(r.Context()), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fr)
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	fr, err := h.friends.Accept(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "requestId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fr)
}

func (h *FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if err := h.friends.Decline(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "requestId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friends.ListFriends(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	incoming, outgoing, err := h.friends.ListRequests(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

func (h *FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	if err := h.friends.Unfriend(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "userId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
