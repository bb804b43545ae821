package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomResponse struct {
	Code string `json:"code"`
}

type MessageItem struct {
	ID              int64     `json:"id"`
	RoomID          int64     `json:"room_id"`
	ParticipantName string    `json:"participant_name"`
	Content         string    `json:"content"`
	SentAt          time.Time `json:"sent_at"`
}

type StatsResponse struct {
	Rooms       int            `json:"rooms"`
	Connections int            `json:"connections"`
	ByRoom      map[string]int `json:"by_room"`
}
