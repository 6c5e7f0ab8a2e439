package messagestore

import (
	"context"
	"time"

	"gepetobot/internal/messagestore/models"

	"github.com/jmoiron/sqlx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL,
    source          TEXT NOT NULL DEFAULT 'text',
    created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at);
`

// SQLiteStore is the embedded relational backend. The schema is created
// on construction so the binary works against a fresh database file.
type SQLiteStore struct {
	db        *sqlx.DB
	retention time.Duration
}

func NewSQLiteStore(db *sqlx.DB, retention time.Duration) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, storageErr("init", "", err)
	}
	return &SQLiteStore{
		db:        db,
		retention: retention,
	}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, conversationID, role, content string, source models.ContentSource) error {
	query := `
		INSERT INTO messages (conversation_id, role, content, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, conversationID, role, content, source, time.Now().UTC()); err != nil {
		return storageErr("insert", conversationID, err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, conversationID string) ([]models.HistoryItem, error) {
	query := `
		SELECT role, content
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`
	args := []interface{}{conversationID}

	if s.retention > 0 {
		query = `
			SELECT role, content
			FROM messages
			WHERE conversation_id = ?
			  AND created_at > ?
			ORDER BY created_at ASC, id ASC
		`
		args = append(args, time.Now().UTC().Add(-s.retention))
	}

	var history []models.HistoryItem
	if err := s.db.SelectContext(ctx, &history, query, args...); err != nil {
		return nil, storageErr("history", conversationID, err)
	}
	return history, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}
	return int(deleted), nil
}
