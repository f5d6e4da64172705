package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
	unread   *service.UnreadService
}

func NewMessageHandler(messages *service.MessageService, unread *service.UnreadService) *MessageHandler {
	return &MessageHandler{messages: messages, unread: unread}
}

func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelId")
	userID := middleware.GetUserID(r.Context())

	limit := queryInt(r, "limit", 50)
	beforeID := queryInt64(r, "before_id", 0)

	messages, err := h.messages.List(r.Context(), userID, channelID, beforeID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type SendMessageRequest struct {
	Content     string            `json:"content"`
	MessageType model.MessageType `json:"message_type"`
	FileURL     string            `json:"file_url"`
	FileName    string            `json:"file_name"`
	FileSize    int64             `json:"file_size"`
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := h.messages.Send(r.Context(), service.SendMessageInput{
		UserID:      middleware.GetUserID(r.Context()),
		ChannelID:   chi.URLParam(r, "channelId"),
		Content:     req.Content,
		MessageType: req.MessageType,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathInt64(chi.URLParam(r, "messageId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := h.messages.Edit(r.Context(), middleware.GetUserID(r.Context()), messageID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathInt64(chi.URLParam(r, "messageId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	if err := h.messages.Delete(r.Context(), middleware.GetUserID(r.Context()), messageID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ReactionRequest struct {
	Emoji string             `json:"emoji"`
	Kind  model.ReactionKind `json:"kind"`
}

func (h *MessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathInt64(chi.URLParam(r, "messageId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	reactions, err := h.messages.ToggleReaction(r.Context(), middleware.GetUserID(r.Context()), messageID, req.Emoji, req.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reactions": reactions})
}

type ForwardRequest struct {
	TargetChannelID string `json:"target_channel_id"`
}

func (h *MessageHandler) ForwardMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathInt64(chi.URLParam(r, "messageId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var req ForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := h.messages.Forward(r.Context(), middleware.GetUserID(r.Context()), messageID, req.TargetChannelID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type MarkReadRequest struct {
	MessageID int64 `json:"message_id"`
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.unread.MarkRead(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "channelId"), req.MessageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) GetUnread(w http.ResponseWriter, r *http.Request) {
	n, err := h.unread.ChannelUnread(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "channelId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

type UnreadBatchRequest struct {
	ChannelIDs []string `json:"channel_ids"`
}

func (h *MessageHandler) GetUnreadBatch(w http.ResponseWriter, r *http.Request) {
	var req UnreadBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	counts, err := h.unread.ChannelsUnread(r.Context(), middleware.GetUserID(r.Context()), req.ChannelIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
