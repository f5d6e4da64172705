package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/service"
)

type ContentHandler struct {
	content *service.ContentService
}

func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

type StickerPackRequest struct {
	Name string `json:"name"`
}

func (h *ContentHandler) CreateStickerPack(w http.ResponseWriter, r *http.Request) {
	var req StickerPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	pack, err := h.content.CreateStickerPack(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pack)
}

func (h *ContentHandler) ListStickerPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := h.content.ListStickerPacks(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, packs)
}

func (h *ContentHandler) DeleteStickerPack(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteStickerPack(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "packId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type StickerRequest struct {
	FileURL string `json:"file_url"`
	Emoji   string `json:"emoji"`
}

func (h *ContentHandler) AddSticker(w http.ResponseWriter, r *http.Request) {
	var req StickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sticker, err := h.content.AddSticker(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "packId"), req.FileURL, req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sticker)
}

func (h *ContentHandler) ListStickers(w http.ResponseWriter, r *http.Request) {
	stickers, err := h.content.ListStickers(r.Context(), chi.URLParam(r, "packId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stickers)
}

func (h *ContentHandler) RemoveSticker(w http.ResponseWriter, r *http.Request) {
	err := h.content.RemoveSticker(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "packId"), chi.URLParam(r, "stickerId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type MusicRequest struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	FileURL  string `json:"file_url"`
	CoverURL string `json:"cover_url"`
}

func (h *ContentHandler) AddMusic(w http.ResponseWriter, r *http.Request) {
	var req MusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	track, err := h.content.AddMusic(r.Context(), middleware.GetUserID(r.Context()), req.Title, req.Artist, req.FileURL, req.CoverURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (h *ContentHandler) ListMusic(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.content.ListMusic(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *ContentHandler) RemoveMusic(w http.ResponseWriter, r *http.Request) {
	if err := h.content.RemoveMusic(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "trackId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
