// Package memory держит хранилище в памяти процесса: для локального запуска и тестов.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	clock    func() time.Time
	lastTick time.Time

	rooms        map[string]*domain.Room
	participants map[int64]map[string]domain.Participant
	messages     map[int64][]domain.Message

	nextRoomID        int64
	nextParticipantID int64
	nextMessageID     int64
}

func NewStore() *Store {
	return &Store{
		clock:        time.Now,
		rooms:        make(map[string]*domain.Room),
		participants: make(map[int64]map[string]domain.Participant),
		messages:     make(map[int64][]domain.Message),
	}
}

// now не убывает, даже если системные часы отступили назад. Вызывается под s.mu.
func (s *Store) now() time.Time {
	t := s.clock().UTC()
	if t.Before(s.lastTick) {
		t = s.lastTick
	}
	s.lastTick = t
	return t
}

func (s *Store) FindRoomByCode(_ context.Context, code string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rm, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *rm
	return &cp, nil
}

func (s *Store) InsertRoom(_ context.Context, code string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[code]; ok {
		return nil, domain.ErrRoomExists
	}
	s.nextRoomID++
	rm := &domain.Room{ID: s.nextRoomID, Code: code, CreatedAt: s.now()}
	s.rooms[code] = rm
	cp := *rm
	return &cp, nil
}

func (s *Store) CountParticipants(_ context.Context, roomID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.participants[roomID]), nil
}

func (s *Store) InsertParticipant(_ context.Context, roomID int64, name string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.participants[roomID]
	if !ok {
		byName = make(map[string]domain.Participant)
		s.participants[roomID] = byName
	}
	if _, taken := byName[name]; taken {
		return nil, domain.ErrNameTaken
	}
	s.nextParticipantID++
	p := domain.Participant{ID: s.nextParticipantID, RoomID: roomID, Name: name, JoinedAt: s.now()}
	byName[name] = p
	return &p, nil
}

func (s *Store) InsertMessage(_ context.Context, roomID int64, senderName, content string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMessageID++
	m := domain.Message{
		ID:              s.nextMessageID,
		RoomID:          roomID,
		ParticipantName: senderName,
		Content:         content,
		SentAt:          s.now(),
	}
	// append под общей блокировкой сохраняет порядок вставки для равных sent_at
	s.messages[roomID] = append(s.messages[roomID], m)
	return &m, nil
}

func (s *Store) ListMessages(_ context.Context, roomID int64) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.messages[roomID]
	out := make([]domain.Message, len(src))
	copy(out, src)
	return out, nil
}
