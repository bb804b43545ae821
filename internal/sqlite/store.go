package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB

	// sent_at выдаём сами: держим его неубывающим даже при скачке часов
	clockMu  sync.Mutex
	lastTick int64
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) now() int64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := time.Now().UnixNano()
	if t < s.lastTick {
		t = s.lastTick
	}
	s.lastTick = t
	return t
}

func (s *Store) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	var (
		rm        domain.Room
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, code, created_at FROM rooms WHERE code = ?`, code).
		Scan(&rm.ID, &rm.Code, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	rm.CreatedAt = fromNanos(createdAt)
	return &rm, nil
}

func (s *Store) InsertRoom(ctx context.Context, code string) (*domain.Room, error) {
	at := s.now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO rooms (code, created_at) VALUES (?, ?)`, code, at)
	if err != nil {
		return nil, mapSqliteError(err, domain.ErrRoomExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Room{ID: id, Code: code, CreatedAt: fromNanos(at)}, nil
}

func (s *Store) CountParticipants(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants WHERE room_id = ?`, roomID).Scan(&count)
	return count, err
}

func (s *Store) InsertParticipant(ctx context.Context, roomID int64, name string) (*domain.Participant, error) {
	at := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (room_id, name, joined_at) VALUES (?, ?, ?)`, roomID, name, at)
	if err != nil {
		return nil, mapSqliteError(err, domain.ErrNameTaken)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Participant{ID: id, RoomID: roomID, Name: name, JoinedAt: fromNanos(at)}, nil
}

func (s *Store) InsertMessage(ctx context.Context, roomID int64, senderName, content string) (*domain.Message, error) {
	at := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (room_id, participant_name, content, sent_at) VALUES (?, ?, ?, ?)`,
		roomID, senderName, content, at)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Message{
		ID:              id,
		RoomID:          roomID,
		ParticipantName: senderName,
		Content:         content,
		SentAt:          fromNanos(at),
	}, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, participant_name, content, sent_at
		FROM messages
		WHERE room_id = ?
		ORDER BY sent_at ASC, id ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 64)
	for rows.Next() {
		var (
			m      domain.Message
			sentAt int64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.ParticipantName, &m.Content, &sentAt); err != nil {
			return nil, err
		}
		m.SentAt = fromNanos(sentAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func mapSqliteError(err error, onUnique error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return onUnique
	}
	return err
}
