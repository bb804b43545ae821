package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/jackc/pgx/v5"
)

type RoomRepository struct {
	db querier
}

func NewRoomRepository(db querier) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) InsertRoom(ctx context.Context, code string) (*domain.Room, error) {
	room := &domain.Room{Code: code}
	err := r.db.QueryRow(ctx, `
		INSERT INTO rooms (code)
		VALUES ($1)
		RETURNING id, created_at`, code).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return nil, mapPgError(err, domain.ErrRoomExists)
	}
	return room, nil
}

func (r *RoomRepository) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRow(ctx, `SELECT id, code, created_at FROM rooms WHERE code=$1`, code).
		Scan(&rm.ID, &rm.Code, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}
