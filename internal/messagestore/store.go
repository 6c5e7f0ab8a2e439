package messagestore

import (
	"context"
	"fmt"

	"gepetobot/internal/messagestore/models"
)

// Store persists the ordered message history of each conversation.
// Messages are immutable once inserted; the only destructive operation
// is DeleteAll, which wipes a whole conversation.
type Store interface {
	Insert(ctx context.Context, conversationID, role, content string, source models.ContentSource) error
	// History returns the conversation's messages ascending by creation
	// time, filtered to the store's retention window when one is set.
	History(ctx context.Context, conversationID string) ([]models.HistoryItem, error)
	// DeleteAll removes every message of the conversation and returns how
	// many were deleted. Unknown conversations yield 0, not an error.
	DeleteAll(ctx context.Context, conversationID string) (int, error)
}

// StorageError wraps any backend failure so callers can degrade
// gracefully instead of crashing the handler.
type StorageError struct {
	Op             string
	ConversationID string
	Err            error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("message store: %s failed for conversation %s: %v", e.Op, e.ConversationID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, conversationID string, err error) *StorageError {
	return &StorageError{Op: op, ConversationID: conversationID, Err: err}
}
