// Package telegram is a send-only Telegram client used as the ops alert
// sink for warning-and-above log entries.
package telegram

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token  string
	ChatID int64
}

// Sender posts alert texts to a fixed ops chat. It satisfies
// logx.AlertSender.
type Sender struct {
	bot  *tele.Bot
	chat *tele.Chat
}

func New(cfg Config) (*Sender, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: token required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram: chat id required")
	}
	// Send-only: no poller is attached, so the bot never consumes updates.
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Sender{bot: bot, chat: &tele.Chat{ID: cfg.ChatID}}, nil
}

func (s *Sender) SendAlert(ctx context.Context, text string) error {
	if s == nil || s.bot == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(s.chat, text, tele.ModeHTML)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	}
}

