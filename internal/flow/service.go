// Package flow implements the date selection conversation: open a calendar,
// navigate, toggle dates, ask for a title and publish the poll.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/datepoll/core/logger"
	"github.com/m3rciful/datepoll/internal/calendar"
	"github.com/m3rciful/datepoll/internal/session"
)

// DefaultMaxOptions is the Telegram limit on poll options.
const DefaultMaxOptions = 10

// PollDraft is what gets published once a title is known.
type PollDraft struct {
	UserID          int64
	ChatID          int64
	Title           string
	Dates           []string
	Options         []string
	Anonymous       bool
	MultipleAnswers bool
}

// Publisher sends a finished draft to the chat.
type Publisher interface {
	Publish(ctx context.Context, draft PollDraft) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, draft PollDraft) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, draft PollDraft) error { return f(ctx, draft) }

// Options configures a Service.
type Options struct {
	Store      *session.Store
	Renderer   *calendar.Renderer
	Formatter  calendar.Formatter
	MaxOptions int
}

// Service drives sessions through the calendar conversation.
type Service struct {
	store      *session.Store
	renderer   *calendar.Renderer
	format     calendar.Formatter
	maxOptions int
}

// NewService builds a Service; Store, Renderer and Formatter are required.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil || opts.Renderer == nil || opts.Formatter == nil {
		return nil, fmt.Errorf("flow: store, renderer and formatter are required")
	}
	maxOptions := opts.MaxOptions
	if maxOptions <= 0 {
		maxOptions = DefaultMaxOptions
	}
	return &Service{
		store:      opts.Store,
		renderer:   opts.Renderer,
		format:     opts.Formatter,
		maxOptions: maxOptions,
	}, nil
}

// MaxOptions is the largest selection RequestPoll accepts.
func (s *Service) MaxOptions() int { return s.maxOptions }

// Sessions exposes the underlying store.
func (s *Service) Sessions() *session.Store { return s.store }

// Start opens a fresh session at the month of ref and renders it.
func (s *Service) Start(ctx context.Context, userID, chatID int64, ref time.Time) (calendar.Grid, error) {
	cur := calendar.CursorOf(ref)
	sess := s.store.Start(userID, chatID, cur)
	logger.LogEvent(ctx, logger.Flow, slog.LevelDebug, "session.start",
		slog.String("month", cur.String()),
		slog.Int("sessions", s.store.Len()),
	)
	return s.renderer.Render(sess.Cursor.Year, sess.Cursor.Month, sess.Selected)
}

// Reset drops the session; the user has to start again.
func (s *Service) Reset(ctx context.Context, userID int64) bool {
	existed := s.store.Delete(userID)
	logger.LogEvent(ctx, logger.Flow, slog.LevelDebug, "session.reset",
		slog.Bool("existed", existed),
	)
	return existed
}

// Navigate moves the cursor to year/month, wrapping one step past either end
// of the year, and renders the new month with the current selection.
func (s *Service) Navigate(ctx context.Context, userID int64, year, month int) (calendar.Grid, error) {
	cur := calendar.Normalize(year, month)
	sess, err := s.store.Update(userID, func(sess *session.Session) error {
		sess.Cursor = cur
		return nil
	})
	if err != nil {
		return calendar.Grid{}, mapStoreErr(err)
	}
	logger.LogEvent(ctx, logger.Flow, slog.LevelDebug, "session.navigate",
		slog.String("month", cur.String()),
	)
	return s.renderer.Render(sess.Cursor.Year, sess.Cursor.Month, sess.Selected)
}

// Toggle flips date in the selection and re-renders the current month.
func (s *Service) Toggle(ctx context.Context, userID int64, date string) (calendar.Grid, error) {
	var selected bool
	sess, err := s.store.Update(userID, func(sess *session.Session) error {
		if _, err := calendar.ParseDate(date); err != nil {
			return ErrInvalidDate
		}
		selected = sess.Selected.Toggle(date)
		return nil
	})
	if err != nil {
		return calendar.Grid{}, mapStoreErr(err)
	}
	logger.LogEvent(ctx, logger.Flow, slog.LevelDebug, "session.toggle",
		slog.String("date", date),
		slog.Bool("selected", selected),
		slog.Int("options", sess.Selected.Len()),
	)
	return s.renderer.Render(sess.Cursor.Year, sess.Cursor.Month, sess.Selected)
}

// RequestPoll switches the session to title entry. It needs at least two and
// at most MaxOptions dates.
func (s *Service) RequestPoll(ctx context.Context, userID int64) error {
	sess, err := s.store.Update(userID, func(sess *session.Session) error {
		n := sess.Selected.Len()
		switch {
		case n < calendar.MinPollOptions:
			return ErrInsufficientSelection
		case n > s.maxOptions:
			return ErrTooManyOptions
		}
		sess.AwaitingTitle = true
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return ErrInsufficientSelection
	}
	if err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.Flow, slog.LevelDebug, "session.await_title",
		slog.Int("options", sess.Selected.Len()),
	)
	return nil
}

// AwaitingTitle reports whether the next free text from the user is a title.
func (s *Service) AwaitingTitle(userID int64) bool {
	sess, ok := s.store.Get(userID)
	return ok && sess.AwaitingTitle
}

// SubmitTitle publishes the poll for the user's selection. The session is
// claimed before publishing so a title request yields at most one poll, and
// it is removed only after pub succeeds; a blank title keeps it waiting. If
// the selection dropped below two dates meanwhile, title entry is cancelled.
func (s *Service) SubmitTitle(ctx context.Context, userID int64, raw string, pub Publisher) (PollDraft, error) {
	title := strings.TrimSpace(raw)
	claimed, err := s.store.Update(userID, func(sess *session.Session) error {
		switch {
		case !sess.AwaitingTitle:
			return ErrNotAwaitingTitle
		case sess.Publishing:
			return ErrPublishInProgress
		case title == "":
			return ErrEmptyTitle
		case sess.Selected.Len() < calendar.MinPollOptions:
			sess.AwaitingTitle = false
			return nil
		}
		sess.Publishing = true
		return nil
	})
	if err != nil {
		return PollDraft{}, mapStoreErr(err)
	}
	if !claimed.Publishing {
		return PollDraft{}, ErrInsufficientSelection
	}
	same := func(sess session.Session) bool { return sess.Seq == claimed.Seq }

	draft, err := s.Draft(claimed, title)
	if err == nil {
		err = pub.Publish(ctx, draft)
	}
	if err != nil {
		_, _ = s.store.Update(userID, func(sess *session.Session) error {
			if !same(*sess) {
				return session.ErrNotFound
			}
			sess.Publishing = false
			return nil
		})
		return draft, fmt.Errorf("publish poll: %w", err)
	}

	s.store.DeleteIf(userID, same)
	logger.LogEvent(ctx, logger.Flow, slog.LevelInfo, "session.complete",
		slog.Int("options", len(draft.Options)),
		slog.Int("sessions", s.store.Len()),
	)
	return draft, nil
}

// Draft builds the poll for sess: options follow the dates in ascending order.
func (s *Service) Draft(sess session.Session, title string) (PollDraft, error) {
	dates := sess.Selected.Sorted()
	options := make([]string, len(dates))
	for i, d := range dates {
		t, err := calendar.ParseDate(d)
		if err != nil {
			return PollDraft{}, fmt.Errorf("draft: %w", err)
		}
		options[i] = s.format.OptionLabel(t)
	}
	return PollDraft{
		UserID:          sess.UserID,
		ChatID:          sess.ChatID,
		Title:           title,
		Dates:           dates,
		Options:         options,
		Anonymous:       false,
		MultipleAnswers: true,
	}, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return ErrNoActiveSession
	}
	return err
}
