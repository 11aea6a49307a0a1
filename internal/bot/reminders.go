package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"family-tasks/internal/model"
)

// Reminder kinds, also used as the metrics label.
const (
	KindMorning  = "morning"
	KindEvening  = "evening"
	KindSprint   = "sprint"
	KindInterval = "interval"
)

type buildFunc func(ctx context.Context, link model.TelegramLink, now time.Time) ([]tgbotapi.MessageConfig, error)

// SendMorningReminders sends today's task list to every linked parent.
func (b *Bot) SendMorningReminders(ctx context.Context) error {
	return b.broadcast(ctx, KindMorning, func(ctx context.Context, link model.TelegramLink, now time.Time) ([]tgbotapi.MessageConfig, error) {
		text, err := b.svc.Reminders.MorningSummary(ctx, link.ParentID, now)
		if err != nil {
			return nil, err
		}
		return []tgbotapi.MessageConfig{htmlMessage(link.ChatID, text)}, nil
	})
}

// SendEveningSummaries sends the day's results to every linked parent.
func (b *Bot) SendEveningSummaries(ctx context.Context) error {
	return b.broadcast(ctx, KindEvening, func(ctx context.Context, link model.TelegramLink, now time.Time) ([]tgbotapi.MessageConfig, error) {
		text, err := b.svc.Reminders.EveningSummary(ctx, link.ParentID, now)
		if err != nil {
			return nil, err
		}
		return []tgbotapi.MessageConfig{htmlMessage(link.ChatID, text)}, nil
	})
}

// SendSprintNotices tells parents about sprints that end today.
func (b *Bot) SendSprintNotices(ctx context.Context) error {
	return b.broadcast(ctx, KindSprint, func(ctx context.Context, link model.TelegramLink, now time.Time) ([]tgbotapi.MessageConfig, error) {
		texts, err := b.svc.Reminders.SprintEndingNotices(ctx, link.ParentID, now)
		if err != nil {
			return nil, err
		}
		out := make([]tgbotapi.MessageConfig, 0, len(texts))
		for _, text := range texts {
			out = append(out, htmlMessage(link.ChatID, text))
		}
		return out, nil
	})
}

// SendIntervalReports sends the interactive today list between the morning
// and evening messages.
func (b *Bot) SendIntervalReports(ctx context.Context) error {
	return b.broadcast(ctx, KindInterval, func(ctx context.Context, link model.TelegramLink, _ time.Time) ([]tgbotapi.MessageConfig, error) {
		parent, err := b.svc.Telegram.ParentForAccount(ctx, link.TelegramID)
		if err != nil {
			return nil, err
		}
		msg, err := b.todayMessage(ctx, link.ChatID, parent)
		if err != nil {
			return nil, err
		}
		return []tgbotapi.MessageConfig{msg}, nil
	})
}

// broadcast builds and sends messages for every linked chat. A failure for one
// parent is logged and counted; the others still get their messages.
func (b *Bot) broadcast(ctx context.Context, kind string, build buildFunc) error {
	links, err := b.svc.Telegram.Links(ctx)
	if err != nil {
		return fmt.Errorf("list telegram links: %w", err)
	}
	now := b.now()
	sent := 0
	for _, link := range links {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := build(ctx, link, now)
		if err != nil {
			b.metrics.ReminderSent(kind, err)
			b.log.Warn("build reminder", zap.String("kind", kind), zap.String("parent_id", link.ParentID), zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			_, err := b.out.Send(msg)
			b.metrics.ReminderSent(kind, err)
			if err != nil {
				b.log.Warn("send reminder", zap.String("kind", kind), zap.Int64("chat_id", link.ChatID), zap.Error(err))
				continue
			}
			sent++
		}
	}
	b.log.Info("reminders sent", zap.String("kind", kind), zap.Int("chats", len(links)), zap.Int("messages", sent))
	return nil
}
