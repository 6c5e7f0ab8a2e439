package conversation

import (
	"strings"

	"gepetobot/internal/messagestore/models"
)

const (
	defaultTokenBudget = 4096

	// Rough per-message token framing cost plus the assistant reply
	// priming the chat format adds to every request.
	perMessageOverhead = 4
	replyPriming       = 3

	// Whitespace word counts undershoot subword tokenization, so each
	// word is weighted up and the total carries a safety margin.
	wordTokenRatio = 1.3
	safetyMargin   = 1.1
)

// BudgetFitter trims an assembled message list until its estimated token
// cost fits the completion model's context window.
type BudgetFitter struct {
	MaxTokens int
}

func NewBudgetFitter(maxTokens int) *BudgetFitter {
	if maxTokens <= 0 {
		maxTokens = defaultTokenBudget
	}
	return &BudgetFitter{MaxTokens: maxTokens}
}

// Fit evicts the oldest trimmable messages until the estimate is at or
// under budget. The first element (system preamble) and the last element
// (the newest user message) are never dropped; if those two alone still
// exceed the budget the list passes through untouched and the provider
// gets to reject it.
func (f *BudgetFitter) Fit(msgs []models.HistoryItem) []models.HistoryItem {
	if len(msgs) <= 2 {
		return msgs
	}

	out := make([]models.HistoryItem, len(msgs))
	copy(out, msgs)

	for f.estimate(out) > f.MaxTokens && len(out) > 2 {
		out = append(out[:1], out[2:]...)
	}
	return out
}

func (f *BudgetFitter) estimate(msgs []models.HistoryItem) int {
	total := replyPriming
	for _, m := range msgs {
		total += messageTokens(m)
	}
	return int(float64(total) * safetyMargin)
}

func messageTokens(m models.HistoryItem) int {
	words := len(strings.Fields(m.Content))
	return int(float64(words)*wordTokenRatio) + perMessageOverhead
}
