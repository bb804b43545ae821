package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

const (
	createRoomAttempts = 5
	guestNameAttempts  = 5
	guestLockStripes   = 64
)

type ChatService struct {
	store   Store
	newCode func() string

	// сериализует выдачу гостевых имён внутри процесса; уникальность
	// между процессами держит unique(room_id, name) в хранилище.
	guestLocks [guestLockStripes]sync.Mutex
}

func NewChatService(store Store) (*ChatService, error) {
	gen, err := newCodeGenerator()
	if err != nil {
		return nil, err
	}
	return &ChatService{
		store:   store,
		newCode: gen,
	}, nil
}

// SetCodeGenerator подменяет генератор кодов комнат.
func (s *ChatService) SetCodeGenerator(gen func() string) {
	if gen != nil {
		s.newCode = gen
	}
}

// CreateRoom создаёт комнату со случайным коротким кодом.
func (s *ChatService) CreateRoom(ctx context.Context) (*domain.Room, error) {
	var lastErr error
	for range createRoomAttempts {
		room, err := s.store.InsertRoom(ctx, s.newCode())
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, domain.ErrRoomExists) {
			return nil, storeErr("store.InsertRoom", err)
		}
		lastErr = err
	}
	return nil, storeErr("store.InsertRoom", lastErr)
}

// GetHistory возвращает все сообщения комнаты по возрастанию времени отправки.
// Используется и HTTP-ручкой, и WS-сессией при подключении.
func (s *ChatService) GetHistory(ctx context.Context, code string) ([]domain.Message, error) {
	room, err := s.findRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, room.ID)
	if err != nil {
		return nil, storeErr("store.ListMessages", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// JoinRoom проверяет комнату и определяет имя подключения: либо переданное
// клиентом, либо следующее гостевое "Badmos N".
func (s *ChatService) JoinRoom(ctx context.Context, code, name string) (*domain.Room, string, error) {
	room, err := s.findRoom(ctx, code)
	if err != nil {
		return nil, "", err
	}

	if name = strings.TrimSpace(name); name != "" {
		return room, name, nil
	}

	guest, err := s.allocateGuestName(ctx, room.ID)
	if err != nil {
		return nil, "", err
	}
	return room, guest, nil
}

func (s *ChatService) allocateGuestName(ctx context.Context, roomID int64) (string, error) {
	mu := &s.guestLocks[uint64(roomID)%guestLockStripes]
	mu.Lock()
	defer mu.Unlock()

	last := 0
	for range guestNameAttempts {
		count, err := s.store.CountParticipants(ctx, roomID)
		if err != nil {
			return "", storeErr("store.CountParticipants", err)
		}
		n := count + 1
		if n <= last {
			n = last + 1
		}
		last = n

		name := fmt.Sprintf("%s %d", domain.GuestNamePrefix, n)
		_, err = s.store.InsertParticipant(ctx, roomID, name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, domain.ErrNameTaken) {
			return "", storeErr("store.InsertParticipant", err)
		}
		slog.Debug("guest name taken, retrying", "room_id", roomID, "name", name)
	}
	return "", storeErr("store.InsertParticipant", domain.ErrNameTaken)
}

// PostMessage сохраняет сообщение как есть, без обрезки и проверок содержимого;
// время отправки назначает хранилище. Размер кадра ограничивает транспорт.
func (s *ChatService) PostMessage(ctx context.Context, room *domain.Room, sender, content string) (*domain.Message, error) {
	msg, err := s.store.InsertMessage(ctx, room.ID, sender, content)
	if err != nil {
		return nil, storeErr("store.InsertMessage", err)
	}
	return msg, nil
}

func (s *ChatService) findRoom(ctx context.Context, code string) (*domain.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrRoomNotFound
	}
	room, err := s.store.FindRoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, storeErr("store.FindRoomByCode", err)
	}
	return room, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreFailure, err)
}
