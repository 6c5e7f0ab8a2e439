package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gepetobot/internal/chatgpt"
	"gepetobot/internal/messagestore/models"
	"gepetobot/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Conversations is the slice of the conversation service the adapter
// needs: answer, remember without answering, forget everything.
type Conversations interface {
	Ask(ctx context.Context, conversationID, text string, source models.ContentSource) []string
	RecordOnly(ctx context.Context, conversationID, text string) error
	Clear(ctx context.Context, conversationID string) (int, error)
}

// Media covers the non-chat provider operations the adapter relays.
type Media interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// botClient is the part of tgbotapi.BotAPI the handlers touch, split
// out so tests can run updates through the handler without a live bot.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Handler struct {
	bot   *tgbotapi.BotAPI
	api   botClient
	conv  Conversations
	media Media
	cfg   *config.Config
}

func NewHandler(cfg *config.Config, conv Conversations, media Media) (*Handler, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("initializing Telegram bot: %w", err)
	}

	logrus.Infof("Telegram bot started: %s", bot.Self.UserName)

	return &Handler{
		bot:   bot,
		api:   bot,
		conv:  conv,
		media: media,
		cfg:   cfg,
	}, nil
}

func (h *Handler) SetupWebhook() error {
	webhookURL := fmt.Sprintf("https://%s:%s/webhook", h.cfg.ServerHost, h.cfg.ServerPort)

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}

	if _, err := h.bot.Request(webhookConfig); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}

	return nil
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := h.bot.HandleUpdate(r)
	if err != nil {
		logrus.Errorf("decoding Telegram update: %v", err)
		return
	}

	h.handleUpdate(*update)
}

// Run long-polls for updates until the context is cancelled. Each
// update gets its own goroutine so a slow completion only stalls its
// own conversation.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := h.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go h.handleUpdate(update)
		}
	}
}

func (h *Handler) handleUpdate(update tgbotapi.Update) {
	ctx := context.Background()

	if update.Message == nil {
		return
	}

	switch update.Message.Command() {
	case "limpar":
		h.handleClear(ctx, update.Message)
		return
	case "imagem":
		h.handleImage(ctx, update.Message)
		return
	}

	if update.Message.Voice != nil || update.Message.Audio != nil {
		h.handleAudioMessage(ctx, update.Message)
		return
	}

	if update.Message.Text != "" {
		h.handleTextMessage(ctx, update.Message)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, msg *tgbotapi.Message) {
	convID := conversationID(msg)

	// In groups the bot stays quiet unless addressed by name, but it
	// still remembers what was said.
	if !msg.Chat.IsPrivate() && !mentionsBot(msg.Text, h.cfg.BotName) {
		if err := h.conv.RecordOnly(ctx, convID, msg.Text); err != nil {
			logrus.Errorf("recording group message for conversation %s: %v", convID, err)
		}
		return
	}

	replies := h.conv.Ask(ctx, convID, msg.Text, models.SourceText)
	h.reply(msg, strings.Join(replies, ""))
}

func (h *Handler) handleAudioMessage(ctx context.Context, msg *tgbotapi.Message) {
	var fileID string
	if msg.Voice != nil {
		fileID = msg.Voice.FileID
	} else if msg.Audio != nil {
		fileID = msg.Audio.FileID
	}

	audioData, err := h.downloadFile(fileID)
	if err != nil {
		logrus.Errorf("downloading audio file: %v", err)
		h.reply(msg, "Não consegui baixar seu áudio, pode tentar de novo?")
		return
	}

	transcript, err := h.media.Transcribe(ctx, audioData)
	if err != nil {
		logrus.Errorf("transcribing audio: %v", err)
		h.reply(msg, "Não consegui entender o áudio, pode mandar de novo ou escrever?")
		return
	}

	replies := h.conv.Ask(ctx, conversationID(msg), transcript, models.SourceAudio)
	text := strings.Join(replies, "")
	h.reply(msg, text)

	// Voice in, voice out. Synthesis failure is not worth bothering the
	// user about once the text reply is already sent.
	voice, err := h.media.Synthesize(ctx, text)
	if err != nil {
		logrus.Errorf("synthesizing voice reply: %v", err)
		return
	}
	voiceMsg := tgbotapi.NewVoice(msg.Chat.ID, tgbotapi.FileBytes{Name: "resposta.ogg", Bytes: voice})
	if _, err := h.api.Send(voiceMsg); err != nil {
		logrus.Errorf("sending voice reply: %v", err)
	}
}

func (h *Handler) handleClear(ctx context.Context, msg *tgbotapi.Message) {
	deleted, err := h.conv.Clear(ctx, conversationID(msg))
	if err != nil {
		logrus.Errorf("clearing conversation %s: %v", conversationID(msg), err)
		h.reply(msg, "Não consegui limpar nosso histórico agora, tenta de novo mais tarde.")
		return
	}

	if deleted == 0 {
		h.reply(msg, "Nosso histórico já estava vazio.")
		return
	}
	h.reply(msg, fmt.Sprintf("Prontinho, apaguei %d mensagens do nosso histórico.", deleted))
}

func (h *Handler) handleImage(ctx context.Context, msg *tgbotapi.Message) {
	prompt := strings.TrimSpace(msg.CommandArguments())

	url, err := h.media.GenerateImage(ctx, prompt)
	if err != nil {
		var vErr *chatgpt.ValidationError
		if errors.As(err, &vErr) {
			h.reply(msg, "Me diz o que desenhar, por exemplo: /imagem um gato de óculos escuros")
			return
		}
		logrus.Errorf("generating image for conversation %s: %v", conversationID(msg), err)
		h.reply(msg, "Não consegui criar a imagem agora, tenta de novo daqui a pouco.")
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileURL(url))
	if _, err := h.api.Send(photo); err != nil {
		logrus.Errorf("sending generated image: %v", err)
	}
}

func (h *Handler) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	if _, err := h.api.Send(reply); err != nil {
		logrus.Errorf("sending message to chat %d: %v", msg.Chat.ID, err)
	}
}

func (h *Handler) downloadFile(fileID string) ([]byte, error) {
	fileURL, err := h.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file URL: %w", err)
	}

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("fetching file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading file body: %w", err)
	}
	return data, nil
}

// conversationID keys history by chat, so a group shares one
// conversation and a private chat gets its own.
func conversationID(msg *tgbotapi.Message) string {
	return strconv.FormatInt(msg.Chat.ID, 10)
}

func mentionsBot(text, botName string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(botName))
}
