package postgres

import (
	"context"
	"fmt"
)

// sent_at через clock_timestamp(): время вставки строки, а не начала транзакции.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         BIGSERIAL PRIMARY KEY,
	code       TEXT        NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS participants (
	id        BIGSERIAL PRIMARY KEY,
	room_id   BIGINT      NOT NULL REFERENCES rooms(id),
	name      TEXT        NOT NULL,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (room_id, name)
);

CREATE TABLE IF NOT EXISTS messages (
	id               BIGSERIAL PRIMARY KEY,
	room_id          BIGINT      NOT NULL REFERENCES rooms(id),
	participant_name TEXT        NOT NULL,
	content          TEXT        NOT NULL,
	sent_at          TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);

CREATE INDEX IF NOT EXISTS messages_room_sent_idx ON messages (room_id, sent_at, id);
`

// Migrate создаёт таблицы, если их ещё нет.
func Migrate(ctx context.Context, q querier) error {
	// без аргументов pgx идёт по simple protocol, несколько statement'ов допустимы
	if _, err := q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
