package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/service"
)

type RoomHandler struct {
	rooms *service.RoomService
}

func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type CreateRoomRequest struct {
	Name     string         `json:"name"`
	Type     model.RoomType `json:"type"`
	IsPublic bool           `json:"is_public"`
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	room, err := h.rooms.CreateRoom(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Type, req.IsPublic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandler) ExplorePublicRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ExplorePublicRooms(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type UpdateRoomRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	IsPublic  bool   `json:"is_public"`
}

func (h *RoomHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.rooms.UpdateRoom(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Name, req.AvatarURL, req.IsPublic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.DeleteRoom(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) GenerateInvite(w http.ResponseWriter, r *http.Request) {
	token, err := h.rooms.GenerateInvite(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"invite_token": token})
}

func (h *RoomHandler) JoinByInvite(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.JoinByInvite(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) JoinPublicRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.JoinPublicRoom(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.LeaveRoom(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) KickMember(w http.ResponseWriter, r *http.Request) {
	err := h.rooms.KickMember(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type BanRequest struct {
	Reason string `json:"reason"`
}

func (h *RoomHandler) BanMember(w http.ResponseWriter, r *http.Request) {
	var req BanRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	err := h.rooms.BanMember(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userId"), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.rooms.ListMembers(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type ChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconEmoji   string `json:"icon_emoji"`
}

func (h *RoomHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	channel, err := h.rooms.CreateChannel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Name, req.Description, req.IconEmoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (h *RoomHandler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.rooms.UpdateChannel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "channelId"), req.Name, req.Description, req.IconEmoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.DeleteChannel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "channelId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.rooms.ListChannels(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *RoomHandler) ListAccessibleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.rooms.ListAccessibleChannels(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

type RoleRequest struct {
	Name                     string `json:"name"`
	MentionTag               string `json:"mention_tag"`
	CanBeMentionedByEveryone bool   `json:"can_be_mentioned_by_everyone"`
}

func (h *RoomHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	role, err := h.rooms.CreateRole(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Name, req.MentionTag, req.CanBeMentionedByEveryone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *RoomHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.rooms.UpdateRole(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "roleId"), req.Name, req.MentionTag, req.CanBeMentionedByEveryone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.DeleteRole(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "roleId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, perms, err := h.rooms.ListRoles(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles, "mention_permissions": perms})
}

func (h *RoomHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	err := h.rooms.AssignRole(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "roleId"), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	err := h.rooms.UnassignRole(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "roleId"), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type MentionPermissionRequest struct {
	SourceRoleID string `json:"source_role_id"`
}

func (h *RoomHandler) AddMentionPermission(w http.ResponseWriter, r *http.Request) {
	var req MentionPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.rooms.AddMentionPermission(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "roleId"), req.SourceRoleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) RemoveMentionPermission(w http.ResponseWriter, r *http.Request) {
	err := h.rooms.RemoveMentionPermission(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "roleId"), chi.URLParam(r, "sourceRoleId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type OpenDMRequest struct {
	UserID string `json:"user_id"`
}

func (h *RoomHandler) OpenDM(w http.ResponseWriter, r *http.Request) {
	var req OpenDMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	room, created, err := h.rooms.OpenDM(r.Context(), middleware.GetUserID(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, room)
}
