package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gepetobot/internal/messagestore/models"

	"github.com/sashabaranov/go-openai"
)

func testService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cc := openai.DefaultConfig("test-key")
	cc.BaseURL = server.URL + "/v1"

	return &Service{
		client: openai.NewClientWithConfig(cc),
		model:  "gpt-3.5-turbo",
	}, server
}

func TestComplete_ReturnsChoicesInOrder(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req["model"] != "gpt-3.5-turbo" {
			t.Errorf("unexpected model: %v", req["model"])
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "primeira"}},
				{"message": map[string]interface{}{"role": "assistant", "content": "segunda"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	choices, err := svc.Complete(context.Background(), []models.HistoryItem{
		{Role: models.RoleSystem, Content: "persona"},
		{Role: models.RoleUser, Content: "oi"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
	if choices[0].Content != "primeira" || choices[1].Content != "segunda" {
		t.Errorf("provider order not preserved: %+v", choices)
	}
	if choices[0].Role != models.RoleAssistant {
		t.Errorf("unexpected role: %q", choices[0].Role)
	}
}

func TestComplete_ProviderErrorWrapped(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
	})

	_, err := svc.Complete(context.Background(), []models.HistoryItem{
		{Role: models.RoleUser, Content: "oi"},
	})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}

	var completionErr *CompletionError
	if !errors.As(err, &completionErr) {
		t.Fatalf("expected CompletionError, got %T", err)
	}
}

func TestComplete_EmptyChoicesIsError(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := svc.Complete(context.Background(), []models.HistoryItem{
		{Role: models.RoleUser, Content: "oi"},
	})

	var completionErr *CompletionError
	if !errors.As(err, &completionErr) {
		t.Fatalf("expected CompletionError for empty choices, got %v", err)
	}
}

func TestGenerateImage_EmptyPromptRejectedLocally(t *testing.T) {
	calls := 0
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := svc.GenerateImage(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected validation error for empty prompt")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if calls != 0 {
		t.Errorf("provider called %d times for empty prompt", calls)
	}
}

func TestGenerateImage_ReturnsURL(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"url": "https://images.example/cat.png"}]}`))
	})

	url, err := svc.GenerateImage(context.Background(), "um gato de óculos escuros")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://images.example/cat.png" {
		t.Errorf("unexpected url: %q", url)
	}
}
