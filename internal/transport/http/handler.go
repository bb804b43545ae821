package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type ChatAPI interface {
	CreateRoom(ctx context.Context) (*domain.Room, error)
	GetHistory(ctx context.Context, code string) ([]domain.Message, error)
}

// StatsSource отдаёт живые комнаты и число подключений в каждой.
type StatsSource interface {
	Rooms() map[string]int
}

type Handler struct {
	chat  ChatAPI
	stats StatsSource
}

func NewHandler(chat ChatAPI, stats StatsSource) *Handler {
	return &Handler{chat: chat, stats: stats}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// POST /rooms/
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.chat.CreateRoom(r.Context())
	if err != nil {
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "could not create room"})
		return
	}

	writeJSON(w, http.StatusCreated, CreateRoomResponse{Code: room.Code})
}

// GET /rooms/{code}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	msgs, err := h.chat.GetHistory(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetHistory:", slog.String("room", code), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "history unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(msgs, func(m domain.Message, _ int) MessageItem {
		return MessageItem{
			ID:              m.ID,
			RoomID:          m.RoomID,
			ParticipantName: m.ParticipantName,
			Content:         m.Content,
			SentAt:          m.SentAt,
		}
	}))
}

// GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	byRoom := h.stats.Rooms()
	writeJSON(w, http.StatusOK, StatsResponse{
		Rooms:       len(byRoom),
		Connections: lo.Sum(lo.Values(byRoom)),
		ByRoom:      byRoom,
	})
}
