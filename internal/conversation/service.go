package conversation

import (
	"context"

	"gepetobot/internal/messagestore"
	"gepetobot/internal/messagestore/models"

	"github.com/sirupsen/logrus"
)

// FallbackReply is sent whenever the completion provider fails. Channel
// adapters always have text to relay; raw provider errors never reach
// the user.
const FallbackReply = "Desculpa, deu um branco aqui e não consegui pensar em uma resposta. Tenta de novo daqui a pouco?"

// Completer issues one chat-completion call for the assembled message
// list and returns the generated choices in provider order.
type Completer interface {
	Complete(ctx context.Context, msgs []models.HistoryItem) ([]models.HistoryItem, error)
}

// Service assembles the message list for each completion call: fixed
// system preamble, persisted history trimmed to the token budget, and
// the new user message.
type Service struct {
	store     messagestore.Store
	completer Completer
	fitter    *BudgetFitter
	prompt    string
}

func NewService(store messagestore.Store, completer Completer, prompt string, tokenBudget int) *Service {
	return &Service{
		store:     store,
		completer: completer,
		fitter:    NewBudgetFitter(tokenBudget),
		prompt:    prompt,
	}
}

// Ask persists the user message, runs the completion, persists every
// returned choice and returns their texts in provider order. A storage
// failure degrades to answering over whatever history is available; a
// completion failure yields the fixed fallback reply. Ask never returns
// an empty slice.
func (s *Service) Ask(ctx context.Context, conversationID, text string, source models.ContentSource) []string {
	if err := s.store.Insert(ctx, conversationID, models.RoleUser, text, source); err != nil {
		logrus.Errorf("storing user message for conversation %s: %v", conversationID, err)
	}

	history, err := s.store.History(ctx, conversationID)
	if err != nil {
		logrus.Errorf("loading history for conversation %s: %v", conversationID, err)
		history = nil
	}

	// If the insert failed (or the read raced it) the new user message
	// may be missing from the loaded history; the model must see it.
	if n := len(history); n == 0 || history[n-1].Role != models.RoleUser || history[n-1].Content != text {
		history = append(history, models.HistoryItem{Role: models.RoleUser, Content: text})
	}

	msgs := make([]models.HistoryItem, 0, len(history)+1)
	msgs = append(msgs, models.HistoryItem{Role: models.RoleSystem, Content: s.prompt})
	msgs = append(msgs, history...)
	msgs = s.fitter.Fit(msgs)

	choices, err := s.completer.Complete(ctx, msgs)
	if err != nil {
		logrus.Errorf("completion for conversation %s: %v", conversationID, err)
		return []string{FallbackReply}
	}

	replies := make([]string, 0, len(choices))
	for _, choice := range choices {
		if err := s.store.Insert(ctx, conversationID, choice.Role, choice.Content, models.SourceText); err != nil {
			logrus.Errorf("storing assistant reply for conversation %s: %v", conversationID, err)
		}
		replies = append(replies, choice.Content)
	}
	if len(replies) == 0 {
		return []string{FallbackReply}
	}
	return replies
}

// RecordOnly persists a user message without answering it. Group chats
// use this for messages that don't address the bot, so later questions
// still have the surrounding context.
func (s *Service) RecordOnly(ctx context.Context, conversationID, text string) error {
	return s.store.Insert(ctx, conversationID, models.RoleUser, text, models.SourceText)
}

// Clear wipes the conversation and reports how many messages existed.
func (s *Service) Clear(ctx context.Context, conversationID string) (int, error) {
	return s.store.DeleteAll(ctx, conversationID)
}
