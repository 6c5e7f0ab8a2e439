package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"gepetobot/internal/messagestore/models"
	"gepetobot/pkg/config"
)

type fakeConv struct {
	askCalls   int
	askConvID  string
	askText    string
	replies    []string
	clearCalls int
	clearCount int
	clearErr   error
}

func (f *fakeConv) Ask(ctx context.Context, conversationID, text string, source models.ContentSource) []string {
	f.askCalls++
	f.askConvID = conversationID
	f.askText = text
	if f.replies == nil {
		return []string{"resposta"}
	}
	return f.replies
}

func (f *fakeConv) Clear(ctx context.Context, conversationID string) (int, error) {
	f.clearCalls++
	return f.clearCount, f.clearErr
}

func postWebhook(t *testing.T, h *Handler, form url.Values, sign func(url.Values) string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign != nil {
		req.Header.Set("X-Twilio-Signature", sign(form))
	}

	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, req)
	return rr
}

func TestWebhook_RepliesWithTwiML(t *testing.T) {
	conv := &fakeConv{replies: []string{"primeira", "segunda"}}
	h := NewHandler(&config.Config{}, conv)

	form := url.Values{}
	form.Set("Body", "oi gepeto")
	form.Set("AccountSid", "AC123")
	form.Set("MessageSid", "SM456")

	rr := postWebhook(t, h, form, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("unexpected content type: %q", ct)
	}
	if conv.askConvID != "AC123" {
		t.Errorf("expected AccountSid as conversation id, got %q", conv.askConvID)
	}
	if conv.askText != "oi gepeto" {
		t.Errorf("unexpected text: %q", conv.askText)
	}

	body := rr.Body.String()
	first := strings.Index(body, "primeira")
	second := strings.Index(body, "segunda")
	if first == -1 || second == -1 || second < first {
		t.Errorf("replies missing or out of order in TwiML: %s", body)
	}
	if strings.Count(body, "<Message>") != 2 {
		t.Errorf("expected one <Message> per reply: %s", body)
	}
}

func TestWebhook_FallsBackToMessageSid(t *testing.T) {
	conv := &fakeConv{}
	h := NewHandler(&config.Config{}, conv)

	form := url.Values{}
	form.Set("Body", "oi")
	form.Set("MessageSid", "SM456")

	postWebhook(t, h, form, nil)

	if conv.askConvID != "SM456" {
		t.Errorf("expected MessageSid fallback, got %q", conv.askConvID)
	}
}

func TestWebhook_ClearCommand(t *testing.T) {
	cases := []struct {
		name       string
		clearCount int
		clearErr   error
		wantInBody string
	}{
		{"deleted", 4, nil, "4"},
		{"empty", 0, nil, "vazio"},
		{"failure", 0, errGone, "Não consegui"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conv := &fakeConv{clearCount: tc.clearCount, clearErr: tc.clearErr}
			h := NewHandler(&config.Config{}, conv)

			form := url.Values{}
			form.Set("Body", "/limpar")
			form.Set("AccountSid", "AC123")

			rr := postWebhook(t, h, form, nil)

			if conv.clearCalls != 1 {
				t.Fatalf("expected 1 clear call, got %d", conv.clearCalls)
			}
			if conv.askCalls != 0 {
				t.Errorf("clear command should not trigger a completion")
			}
			if !strings.Contains(rr.Body.String(), tc.wantInBody) {
				t.Errorf("expected %q in response, got %s", tc.wantInBody, rr.Body.String())
			}
		})
	}
}

func TestWebhook_RejectsInvalidSignature(t *testing.T) {
	conv := &fakeConv{}
	h := NewHandler(&config.Config{
		TwilioAuthToken:  "secret",
		TwilioWebhookURL: "https://bot.example/twilio/webhook",
	}, conv)

	form := url.Values{}
	form.Set("Body", "oi")
	form.Set("AccountSid", "AC123")

	rr := postWebhook(t, h, form, func(url.Values) string { return "bogus" })

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if conv.askCalls != 0 {
		t.Errorf("rejected request must not reach the conversation service")
	}
}

func TestWebhook_AcceptsValidSignature(t *testing.T) {
	const webhookURL = "https://bot.example/twilio/webhook"
	conv := &fakeConv{}
	h := NewHandler(&config.Config{
		TwilioAuthToken:  "secret",
		TwilioWebhookURL: webhookURL,
	}, conv)

	form := url.Values{}
	form.Set("Body", "oi")
	form.Set("AccountSid", "AC123")

	rr := postWebhook(t, h, form, func(form url.Values) string {
		return twilioSignature("secret", webhookURL, form)
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if conv.askCalls != 1 {
		t.Errorf("expected the request to reach the conversation service")
	}
}

// twilioSignature reproduces Twilio's signing scheme: HMAC-SHA1 over the
// URL followed by the form parameters sorted by key, base64 encoded.
func twilioSignature(authToken, webhookURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := webhookURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

var errGone = errors.New("store down")
