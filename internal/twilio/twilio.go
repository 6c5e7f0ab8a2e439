package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gepetobot/internal/messagestore/models"
	"gepetobot/pkg/config"

	"github.com/sirupsen/logrus"
	twclient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// Conversations is the slice of the conversation service the webhook
// needs.
type Conversations interface {
	Ask(ctx context.Context, conversationID, text string, source models.ContentSource) []string
	Clear(ctx context.Context, conversationID string) (int, error)
}

// Handler answers Twilio messaging webhooks (SMS/WhatsApp) with TwiML.
type Handler struct {
	conv       Conversations
	validator  *twclient.RequestValidator
	webhookURL string
}

// NewHandler builds the webhook handler. Signature validation is only
// enabled when an auth token is configured; without one every request
// is accepted (local development).
func NewHandler(cfg *config.Config, conv Conversations) *Handler {
	h := &Handler{
		conv:       conv,
		webhookURL: cfg.TwilioWebhookURL,
	}
	if cfg.TwilioAuthToken != "" {
		v := twclient.NewRequestValidator(cfg.TwilioAuthToken)
		h.validator = &v
	}
	return h
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if h.validator != nil && !h.validSignature(r) {
		logrus.Warn("rejected Twilio webhook with invalid signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	body := strings.TrimSpace(r.PostFormValue("Body"))
	conversationID := r.PostFormValue("AccountSid")
	if conversationID == "" {
		conversationID = r.PostFormValue("MessageSid")
	}

	h.respond(w, h.handleMessage(r.Context(), conversationID, body))
}

func (h *Handler) handleMessage(ctx context.Context, conversationID, body string) []string {
	if strings.EqualFold(body, "/limpar") {
		deleted, err := h.conv.Clear(ctx, conversationID)
		switch {
		case err != nil:
			logrus.Errorf("clearing conversation %s: %v", conversationID, err)
			return []string{"Não consegui limpar nosso histórico agora, tenta de novo mais tarde."}
		case deleted == 0:
			return []string{"Nosso histórico já estava vazio."}
		default:
			return []string{fmt.Sprintf("Prontinho, apaguei %d mensagens do nosso histórico.", deleted)}
		}
	}

	return h.conv.Ask(ctx, conversationID, body, models.SourceText)
}

// respond renders one <Message> per reply, preserving provider order.
func (h *Handler) respond(w http.ResponseWriter, replies []string) {
	verbs := make([]twiml.Element, 0, len(replies))
	for _, reply := range replies {
		verbs = append(verbs, &twiml.MessagingMessage{Body: reply})
	}

	doc, err := twiml.Messages(verbs)
	if err != nil {
		logrus.Errorf("rendering TwiML response: %v", err)
		doc = "<Response></Response>"
	}

	w.Header().Set("Content-Type", "text/xml")
	io.WriteString(w, doc)
}

func (h *Handler) validSignature(r *http.Request) bool {
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return h.validator.Validate(h.webhookURL, params, r.Header.Get("X-Twilio-Signature"))
}
