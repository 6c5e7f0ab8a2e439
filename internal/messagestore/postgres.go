package messagestore

import (
	"context"
	"time"

	"gepetobot/internal/messagestore/models"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps messages in a single messages table:
//
//	CREATE TABLE messages (
//	    id              SERIAL PRIMARY KEY,
//	    conversation_id TEXT NOT NULL,
//	    role            TEXT NOT NULL,
//	    content         TEXT NOT NULL,
//	    source          TEXT NOT NULL DEFAULT 'text',
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX idx_messages_conversation ON messages (conversation_id, created_at);
type PostgresStore struct {
	db        *sqlx.DB
	retention time.Duration
}

func NewPostgresStore(db *sqlx.DB, retention time.Duration) *PostgresStore {
	return &PostgresStore{
		db:        db,
		retention: retention,
	}
}

func (s *PostgresStore) Insert(ctx context.Context, conversationID, role, content string, source models.ContentSource) error {
	query := `
		INSERT INTO messages (conversation_id, role, content, source, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, conversationID, role, content, source); err != nil {
		return storageErr("insert", conversationID, err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, conversationID string) ([]models.HistoryItem, error) {
	query := `
		SELECT role, content
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`
	args := []interface{}{conversationID}

	if s.retention > 0 {
		query = `
			SELECT role, content
			FROM messages
			WHERE conversation_id = $1
			  AND created_at > NOW() - ($2 * INTERVAL '1 second')
			ORDER BY created_at ASC, id ASC
		`
		args = append(args, int64(s.retention.Seconds()))
	}

	var history []models.HistoryItem
	if err := s.db.SelectContext(ctx, &history, query, args...); err != nil {
		return nil, storageErr("history", conversationID, err)
	}
	return history, nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context, conversationID string) (int, error) {
	query := `DELETE FROM messages WHERE conversation_id = $1`

	res, err := s.db.ExecContext(ctx, query, conversationID)
	if err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete_all", conversationID, err)
	}
	return int(deleted), nil
}
