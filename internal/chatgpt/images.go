package chatgpt

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// GenerateImage returns the URL of one generated image. An empty prompt
// is rejected locally; every other failure is a provider error.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ValidationError{Reason: "image prompt is empty"}
	}

	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt: prompt,
		Model:  openai.CreateImageModelDallE3,
		N:      1,
		Size:   openai.CreateImageSize1024x1024,
	})
	if err != nil {
		return "", &CompletionError{Err: err}
	}
	if len(resp.Data) == 0 {
		return "", &CompletionError{Err: errors.New("provider returned no images")}
	}

	return resp.Data[0].URL, nil
}
