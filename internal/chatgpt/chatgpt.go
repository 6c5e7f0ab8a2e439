package chatgpt

import (
	"context"
	"errors"

	"gepetobot/internal/messagestore/models"
	"gepetobot/pkg/config"

	"github.com/sashabaranov/go-openai"
)

// Service owns the OpenAI client and API key. One non-streaming,
// single-choice request per call, with no automatic retries: the user
// re-sending through the channel is the retry boundary.
type Service struct {
	client *openai.Client
	model  string
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		client: openai.NewClient(cfg.OpenAIKey),
		model:  cfg.OpenAIModel,
	}
}

func (s *Service) Complete(ctx context.Context, msgs []models.HistoryItem) ([]models.HistoryItem, error) {
	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		N:        1,
	})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &CompletionError{Err: errors.New("provider returned no choices")}
	}

	choices := make([]models.HistoryItem, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = models.HistoryItem{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		}
	}
	return choices, nil
}
