package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type ChatRepository struct {
	db querier
}

func NewChatRepository(db querier) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) InsertMessage(ctx context.Context, roomID int64, senderName, content string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (room_id, participant_name, content)
		VALUES ($1, $2, $3)
		RETURNING id, room_id, participant_name, content, sent_at
	`, roomID, senderName, content)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.RoomID, &m.ParticipantName, &m.Content, &m.SentAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages возвращает всю историю комнаты (sent_at, id ASC).
func (r *ChatRepository) ListMessages(ctx context.Context, roomID int64) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, participant_name, content, sent_at
		FROM messages
		WHERE room_id = $1
		ORDER BY sent_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 64)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.ParticipantName, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
