// Package bot adapts the Telegram Bot API to the watcher's needs:
// reading inbound updates and sending Markdown notifications.
package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrRejected marks a send that Telegram refused for good, for example
// because the Markdown could not be parsed or the user blocked the bot.
// Retrying such a message will not help.
var ErrRejected = errors.New("telegram rejected message")

// apiTimeout bounds every Bot API call; updates are requested without long polling.
const apiTimeout = 30 * time.Second

// MaxUpdatesPerCall is the largest batch getUpdates returns.
const MaxUpdatesPerCall = 100

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Update is an inbound update reduced to the fields the watcher uses.
// Message is nil when the update carries no usable chat message.
type Update struct {
	ID      int
	Message *Message
}

// Message is the text and origin of an inbound chat message.
type Message struct {
	ChatID int64
	Text   string
}

// Bot talks to the Telegram Bot API.
type Bot struct {
	api telegramAPI
	log *slog.Logger
}

// New creates a Bot for token. endpoint is a tgbotapi endpoint format
// string such as tgbotapi.APIEndpoint; an empty endpoint selects the default.
func New(token, endpoint string, log *slog.Logger) (*Bot, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: apiTimeout})
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized on telegram", "username", api.Self.UserName)

	return &Bot{api: api, log: log}, nil
}

// Updates returns up to MaxUpdatesPerCall pending updates starting at offset
// without blocking. Each update is decoded on its own: one that does not
// decode is returned with its ID and a nil Message so it can be acknowledged.
func (b *Bot) Updates(offset int) ([]Update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params["limit"] = strconv.Itoa(MaxUpdatesPerCall)
	params["timeout"] = "0"

	resp, err := b.api.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}

	updates := make([]Update, 0, len(raw))
	for _, r := range raw {
		upd, err := decodeUpdate(r)
		if err != nil {
			b.log.Warn("skipping malformed update", "update_id", upd.ID, "error", err)
			if upd.ID == 0 {
				continue
			}
		}
		updates = append(updates, upd)
	}
	return updates, nil
}

// decodeUpdate converts one raw update. On error the returned Update still
// carries the update_id when it could be read.
func decodeUpdate(raw json.RawMessage) (Update, error) {
	var u tgbotapi.Update
	if err := json.Unmarshal(raw, &u); err != nil {
		var id struct {
			UpdateID int `json:"update_id"`
		}
		_ = json.Unmarshal(raw, &id)
		return Update{ID: id.UpdateID}, err
	}

	upd := Update{ID: u.UpdateID}
	if m := u.Message; m != nil && m.Chat != nil {
		upd.Message = &Message{ChatID: m.Chat.ID, Text: m.Text}
	}
	return upd, nil
}

// SendMarkdown sends text to chatID with Markdown rendering.
// Permanent API refusals are reported as ErrRejected.
func (b *Bot) SendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	sent, err := b.api.Send(msg)
	if err != nil {
		if isPermanent(err) {
			return fmt.Errorf("send message: %w: %w", ErrRejected, err)
		}
		return fmt.Errorf("send message: %w", err)
	}
	b.log.Debug("telegram response", "chat_id", chatID, "message_id", sent.MessageID)
	return nil
}

// isPermanent reports whether err is an API error that will recur on retry.
// Rate limiting is transient even though it is a 4xx.
func isPermanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
}
