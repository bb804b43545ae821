// Package sqlite реализует хранилище чата поверх SQLite (database/sql + go-sqlite3).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	code       TEXT    NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id   INTEGER NOT NULL REFERENCES rooms(id),
	name      TEXT    NOT NULL,
	joined_at INTEGER NOT NULL,
	UNIQUE (room_id, name)
);

CREATE TABLE IF NOT EXISTS messages (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id          INTEGER NOT NULL REFERENCES rooms(id),
	participant_name TEXT    NOT NULL,
	content          TEXT    NOT NULL,
	sent_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_room_sent_idx ON messages (room_id, sent_at, id);
`

// Open открывает (или создаёт) базу по пути path и применяет схему.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// один писатель: SQLite всё равно сериализует запись
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
