// internal/notify/telegram.go

// Package notify delivers playback notifications to the user. The
// telegram adapter reports session outcomes and surfaces conflict aborts
// with a "Play anyway" action that restarts the session bypassing the
// audio check.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/user/lector/internal/runner"
	"github.com/user/lector/internal/types"
)

const maxTelegramMessage = 4096

// StartFunc re-invokes a session start with the given parameters.
type StartFunc func(params types.StartParams)

// Telegram bridges playback signals to a Telegram chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	start  StartFunc

	mu      sync.Mutex
	pending map[string]types.StartParams // conflict overrides awaiting a button press
}

// NewTelegram creates a Telegram notifier for the given chat.
func NewTelegram(token string, chatID int64, start StartFunc) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		start:   start,
		pending: make(map[string]types.StartParams),
	}, nil
}

// Attach subscribes the notifier to the runner's signal hub.
func (t *Telegram) Attach(hub *runner.Hub) {
	hub.OnProgress(func(index, total int, itemID types.ItemID) {
		if index == 1 {
			t.send(fmt.Sprintf("Reading %d item(s) aloud.", total), nil)
		}
	})
	hub.OnDone(func(status runner.Status) {
		switch status {
		case runner.StatusCompleted:
			t.send("Reading session finished.", nil)
		case runner.StatusFailed:
			t.send("Reading session failed: speech engine unavailable.", nil)
		case runner.StatusStopped:
			// Stopped by the user; no notification needed.
		}
	})
	hub.OnConflict(func(params types.StartParams) {
		t.sendConflict(params)
	})
}

// sendConflict posts the conflict notification. The override parameters
// are parked under a one-time token bound to the inline button.
func (t *Telegram) sendConflict(params types.StartParams) {
	token := uuid.New().String()
	t.mu.Lock()
	t.pending[token] = params
	t.mu.Unlock()

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Play anyway", "play:"+token),
		),
	)
	text := fmt.Sprintf("Skipped scheduled reading of %q: other audio or a call is active.", params.Name)
	t.send(text, &keyboard)
}

// Start long-polls for callback queries so the "Play anyway" button works.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.CallbackQuery == nil {
				continue
			}
			t.handleCallback(update.CallbackQuery)
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		}
	}
}

func (t *Telegram) handleCallback(q *tgbotapi.CallbackQuery) {
	token, ok := strings.CutPrefix(q.Data, "play:")
	if !ok {
		return
	}

	t.mu.Lock()
	params, found := t.pending[token]
	if found {
		delete(t.pending, token)
	}
	t.mu.Unlock()

	ack := tgbotapi.NewCallback(q.ID, "")
	if !found {
		ack.Text = "This reading offer has expired."
	} else {
		ack.Text = "Starting playback."
		t.start(params)
	}
	if _, err := t.bot.Request(ack); err != nil {
		slog.Warn("answer callback failed", "error", err)
	}
}

func (t *Telegram) send(text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(t.chatID, part)
		if keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		if _, err := t.bot.Send(msg); err != nil {
			slog.Warn("send telegram message failed", "error", err)
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
