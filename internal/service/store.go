package service

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

// Store: узкий интерфейс хранилища, которым пользуется ядро.
// FindRoomByCode возвращает domain.ErrRoomNotFound, если комнаты нет;
// InsertRoom / InsertParticipant возвращают domain.ErrRoomExists / domain.ErrNameTaken
// при нарушении уникальности.
type Store interface {
	FindRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	InsertRoom(ctx context.Context, code string) (*domain.Room, error)
	CountParticipants(ctx context.Context, roomID int64) (int, error)
	InsertParticipant(ctx context.Context, roomID int64, name string) (*domain.Participant, error)
	InsertMessage(ctx context.Context, roomID int64, senderName, content string) (*domain.Message, error)
	ListMessages(ctx context.Context, roomID int64) ([]domain.Message, error)
}
