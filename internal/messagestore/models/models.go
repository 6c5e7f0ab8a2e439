package models

import (
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentSource records how a message entered the system.
type ContentSource string

const (
	SourceText  ContentSource = "text"
	SourceAudio ContentSource = "audio"
)

type Message struct {
	ID             string        `db:"id" json:"id"`
	ConversationID string        `db:"conversation_id" json:"conversation_id"`
	Role           string        `db:"role" json:"role"`
	Content        string        `db:"content" json:"content"`
	Source         ContentSource `db:"source" json:"source"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// HistoryItem is the role/content pair sent to the completion model.
type HistoryItem struct {
	Role    string `db:"role" json:"role"`
	Content string `db:"content" json:"content"`
}
