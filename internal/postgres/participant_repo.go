package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type ParticipantRepository struct {
	db querier
}

func NewParticipantRepository(db querier) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) CountParticipants(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE room_id=$1`, roomID).Scan(&count)
	return count, err
}

// InsertParticipant: unique(room_id, name) не даёт двум параллельным Join получить одно имя.
func (r *ParticipantRepository) InsertParticipant(ctx context.Context, roomID int64, name string) (*domain.Participant, error) {
	p := &domain.Participant{RoomID: roomID, Name: name}
	err := r.db.QueryRow(ctx, `
		INSERT INTO participants (room_id, name)
		VALUES ($1, $2)
		RETURNING id, joined_at`, roomID, name).Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		return nil, mapPgError(err, domain.ErrNameTaken)
	}
	return p, nil
}
