package domain

import "time"

// Message: сохранённое сообщение комнаты. Порядок истории: sent_at, затем id.
type Message struct {
	ID              int64     `db:"id" json:"id"`
	RoomID          int64     `db:"room_id" json:"room_id"`
	ParticipantName string    `db:"participant_name" json:"participant_name"`
	Content         string    `db:"content" json:"content"`
	SentAt          time.Time `db:"sent_at" json:"sent_at"`
}
