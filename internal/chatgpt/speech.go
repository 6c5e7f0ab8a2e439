package chatgpt

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sashabaranov/go-openai"
)

// Transcribe converts a voice note to text with Whisper. The API wants
// a file path, so the audio goes through a temp file.
func (s *Service) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	tempFile, err := os.CreateTemp("", "audio-*.ogg")
	if err != nil {
		return "", fmt.Errorf("creating temp audio file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err = tempFile.Write(audioData); err != nil {
		return "", fmt.Errorf("writing audio data: %w", err)
	}

	resp, err := s.client.CreateTranscription(
		ctx,
		openai.AudioRequest{
			Model:    openai.Whisper1,
			FilePath: tempFile.Name(),
			Language: "pt",
		},
	)
	if err != nil {
		return "", &CompletionError{Err: err}
	}

	return resp.Text, nil
}

// Synthesize renders the reply as an Opus voice note so users who sent
// audio get audio back.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.VoiceAlloy,
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &CompletionError{Err: err}
	}
	return audio, nil
}
