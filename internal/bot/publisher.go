package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/datepoll/core/logger"
	"github.com/m3rciful/datepoll/core/metrics"
	"github.com/m3rciful/datepoll/internal/flow"
	"github.com/m3rciful/datepoll/internal/pollstore"

	tele "gopkg.in/telebot.v4"
)

// Publisher sends drafts as native polls, archives them and attaches the
// tally/cancel keyboard.
type Publisher struct {
	api         Messenger
	polls       pollstore.Store
	groupChatID int64
}

// NewPublisher returns a Publisher. A non-zero groupChatID receives every
// poll; otherwise the poll goes to the chat the calendar was opened in.
func NewPublisher(api Messenger, polls pollstore.Store, groupChatID int64) *Publisher {
	return &Publisher{api: api, polls: polls, groupChatID: groupChatID}
}

// Target returns the chat a draft is published to.
func (p *Publisher) Target(draft flow.PollDraft) int64 {
	if p.groupChatID != 0 {
		return p.groupChatID
	}
	return draft.ChatID
}

// Publish sends the poll. Only the send itself can fail the call: archive
// and keyboard problems are logged since the poll is already visible.
func (p *Publisher) Publish(ctx context.Context, draft flow.PollDraft) error {
	to := tele.ChatID(p.Target(draft))

	poll := &tele.Poll{
		Type:            tele.PollRegular,
		Question:        draft.Title,
		Anonymous:       draft.Anonymous,
		MultipleAnswers: draft.MultipleAnswers,
	}
	for _, opt := range draft.Options {
		poll.Options = append(poll.Options, tele.PollOption{Text: opt})
	}

	msg, err := p.api.Send(to, poll)
	if err != nil {
		return fmt.Errorf("send poll: %w", err)
	}
	metrics.Polls.WithLabelValues("published").Inc()

	chatID := int64(to)
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	rec := pollstore.Poll{
		ID:        pollstore.NewID(),
		ChatID:    chatID,
		MessageID: msg.ID,
		CreatorID: draft.UserID,
		Title:     draft.Title,
		Dates:     draft.Dates,
		Options:   draft.Options,
		Status:    pollstore.StatusOpen,
	}
	if err := p.polls.Save(ctx, rec); err != nil {
		logger.LogEvent(ctx, logger.Polls, slog.LevelError, "poll.archive_failed",
			slog.Int("message_id", msg.ID),
			slog.String("err", err.Error()),
		)
		return nil
	}

	_, err = p.api.Send(to, TextChooseAction, &tele.SendOptions{
		ReplyTo:     msg,
		ReplyMarkup: ManageMarkup(rec.ID),
	})
	if err != nil {
		logger.LogEvent(ctx, logger.Polls, slog.LevelWarn, "poll.keyboard_failed",
			slog.String("poll_id", rec.ID),
			slog.String("err", err.Error()),
		)
	}

	logger.LogEvent(ctx, logger.Polls, slog.LevelInfo, "poll.published",
		slog.String("poll_id", rec.ID),
		slog.Int64("target_chat", chatID),
		slog.Int("options", len(rec.Options)),
	)
	return nil
}
