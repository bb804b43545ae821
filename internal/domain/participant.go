package domain

import "time"

// GuestNamePrefix: префикс имени, которое сервер выдаёт клиенту без имени.
const GuestNamePrefix = "Badmos"

type Participant struct {
	ID       int64     `db:"id" json:"id"`
	RoomID   int64     `db:"room_id" json:"room_id"`
	Name     string    `db:"name" json:"name"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
