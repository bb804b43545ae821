package domain

import "time"

type Room struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
