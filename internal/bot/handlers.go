// Package bot connects the date selection flow to Telegram: commands,
// calendar buttons, title entry and the published poll actions.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/datepoll/core/logger"
	"github.com/m3rciful/datepoll/core/metrics"
	tg "github.com/m3rciful/datepoll/core/telegram"
	"github.com/m3rciful/datepoll/core/telegram/callbacks"
	"github.com/m3rciful/datepoll/core/telegram/commands"
	"github.com/m3rciful/datepoll/core/telegram/format"
	tghelpers "github.com/m3rciful/datepoll/core/telegram/helpers"
	"github.com/m3rciful/datepoll/core/telegram/keyboard"
	"github.com/m3rciful/datepoll/internal/action"
	"github.com/m3rciful/datepoll/internal/calendar"
	"github.com/m3rciful/datepoll/internal/flow"
	"github.com/m3rciful/datepoll/internal/pollstore"

	tele "gopkg.in/telebot.v4"
)

const pollsListLimit = 10

// Options configures Handlers.
type Options struct {
	Flow        *flow.Service
	Polls       pollstore.Store
	Clock       calendar.Clock
	Location    *time.Location
	GroupChatID int64
	// Messenger overrides the bot API taken from the update context.
	Messenger Messenger
}

// Handlers serves every update the bot understands.
type Handlers struct {
	flow        *flow.Service
	polls       pollstore.Store
	clock       calendar.Clock
	loc         *time.Location
	groupChatID int64
	messenger   Messenger
}

// New validates opts and returns Handlers.
func New(opts Options) (*Handlers, error) {
	if opts.Flow == nil || opts.Polls == nil {
		return nil, fmt.Errorf("bot: flow and poll store are required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	clock := opts.Clock
	if clock == nil {
		clock = calendar.SystemClock{Location: loc}
	}
	return &Handlers{
		flow:        opts.Flow,
		polls:       opts.Polls,
		clock:       clock,
		loc:         loc,
		groupChatID: opts.GroupChatID,
		messenger:   opts.Messenger,
	}, nil
}

// Register adds the commands and button handlers to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start":    {Handler: h.onStart, Description: DescStart},
		"/calendar": {Handler: h.onCalendar, Description: DescCalendar},
		"/reset":    {Handler: h.onReset, Description: DescReset},
		"/help":     {Handler: h.onHelp, Description: DescHelp},
		"/polls":    {Handler: h.onPolls, Description: DescPolls},
		"/getid":    {Handler: h.onGetID, Description: DescGetID, Hidden: true},
		"/sessions": {Handler: h.onSessions, Description: DescSessions, AdminOnly: true},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}

	for _, key := range action.Keys() {
		if err := reg.RegisterCallback(key, h.onCallback); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	reg.SetTextFallback(h.UnknownText())
	return nil
}

// InProgress reports whether the user's next text is a poll title.
func (h *Handlers) InProgress(userID int64) bool {
	return h.flow.AwaitingTitle(userID)
}

// ManagerHandler takes the text of a user who is entering a title.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	return h.dispatch(c, action.SubmitTitle{Text: c.Text()})
}

// UnknownText answers stray text in private chats and stays quiet in groups.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
			return nil
		}
		return tghelpers.SendText(c, TextUnknown)
	}
}

// UnknownCallback answers buttons nothing is registered for.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return callbacks.Notify(c, TextUnknownButton)
	}
}

func (h *Handlers) onStart(c tele.Context) error {
	return h.openCalendar(c, TextGreeting, h.clock.Now())
}

func (h *Handlers) onCalendar(c tele.Context) error {
	ref := h.clock.Now()
	if args := c.Args(); len(args) > 0 {
		month, ok := tghelpers.ParseMonth(args[0], h.loc)
		if !ok {
			return tghelpers.SendText(c, TextBadMonth)
		}
		ref = month
	}
	return h.openCalendar(c, TextCalendar, ref)
}

func (h *Handlers) onReset(c tele.Context) error {
	return h.dispatch(c, action.Reset{})
}

func (h *Handlers) onHelp(c tele.Context) error {
	return tghelpers.SendText(c, TextHelp)
}

func (h *Handlers) onGetID(c tele.Context) error {
	return h.dispatch(c, action.GetID{})
}

func (h *Handlers) onSessions(c tele.Context) error {
	return tghelpers.SendText(c, fmt.Sprintf(TextSessions, h.flow.Sessions().Len()))
}

func (h *Handlers) onPolls(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.polls.ListByCreator(ctx, tghelpers.SenderID(c), pollsListLimit)
	if err != nil {
		return fmt.Errorf("list polls: %w", err)
	}
	if len(list) == 0 {
		return tghelpers.SendText(c, TextNoPolls)
	}

	var b strings.Builder
	b.WriteString(TextPollsHeader)
	for _, p := range list {
		title, _ := format.EscapeMarkdown(p.Title, format.MarkdownV1, "")
		fmt.Fprintf(&b, "\n• %s *%s*: %s (вариантов: %d)",
			p.CreatedAt.In(h.loc).Format("02.01.2006"), title, statusLabels[p.Status], len(p.Options))
	}
	return tghelpers.SendMD(c, b.String())
}

func (h *Handlers) onCallback(c tele.Context) error {
	key, payload := callbacks.ParseCallbackData(c.Callback())
	a, err := action.Decode(key, payload)
	if err != nil {
		_ = callbacks.Notify(c, TextUnknownButton)
		return err
	}
	return h.dispatch(c, a)
}

// dispatch is the single entry point for decoded actions.
func (h *Handlers) dispatch(c tele.Context, a action.Action) error {
	ctx := tghelpers.BuildContext(c)
	userID := tghelpers.SenderID(c)

	switch a := a.(type) {
	case action.Noop:
		return nil
	case action.Navigate:
		grid, err := h.flow.Navigate(ctx, userID, a.Year, a.Month)
		return h.editGrid(ctx, c, grid, err)
	case action.ToggleDate:
		grid, err := h.flow.Toggle(ctx, userID, a.Date)
		return h.editGrid(ctx, c, grid, err)
	case action.CreatePoll:
		return h.requestPoll(ctx, c, userID)
	case action.SubmitTitle:
		return h.submitTitle(ctx, c, userID, a.Text)
	case action.Reset:
		h.flow.Reset(ctx, userID)
		return tghelpers.SendText(c, TextReset)
	case action.GetID:
		return tghelpers.SendText(c, fmt.Sprintf(TextChatID, tghelpers.ChatID(c)))
	case action.TallyPoll:
		return h.tallyPoll(ctx, c, userID, a.PollID)
	case action.CancelPoll:
		return h.cancelPoll(ctx, c, userID, a.PollID)
	default:
		return fmt.Errorf("bot: unhandled action %T", a)
	}
}

func (h *Handlers) openCalendar(c tele.Context, text string, ref time.Time) error {
	userID := tghelpers.SenderID(c)
	if userID == 0 {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	grid, err := h.flow.Start(ctx, userID, tghelpers.ChatID(c), ref)
	if err != nil {
		return err
	}
	markup, err := GridMarkup(grid)
	if err != nil {
		return err
	}
	return tghelpers.SendMarkup(c, text, markup)
}

func (h *Handlers) editGrid(ctx context.Context, c tele.Context, grid calendar.Grid, err error) error {
	if errors.Is(err, flow.ErrNoActiveSession) {
		logger.LogEvent(ctx, logger.Flow, slog.LevelDebug, "session.missing")
		return nil
	}
	if err != nil {
		return err
	}
	markup, err := GridMarkup(grid)
	if err != nil {
		return err
	}
	return c.Edit(markup)
}

func (h *Handlers) requestPoll(ctx context.Context, c tele.Context, userID int64) error {
	err := h.flow.RequestPoll(ctx, userID)
	switch {
	case errors.Is(err, flow.ErrInsufficientSelection):
		return callbacks.Notify(c, TextNeedTwoDates)
	case errors.Is(err, flow.ErrTooManyOptions):
		return callbacks.Notify(c, fmt.Sprintf(TextTooManyDates, h.flow.MaxOptions()))
	case err != nil:
		return err
	}
	_ = callbacks.Respond(c)
	return tghelpers.SendMarkup(c, TextTitlePrompt, keyboard.ForceReply(TextTitlePholder))
}

func (h *Handlers) submitTitle(ctx context.Context, c tele.Context, userID int64, text string) error {
	draft, err := h.flow.SubmitTitle(ctx, userID, text, h.publisher(c))
	switch {
	case errors.Is(err, flow.ErrNoActiveSession), errors.Is(err, flow.ErrNotAwaitingTitle),
		errors.Is(err, flow.ErrPublishInProgress):
		return nil
	case errors.Is(err, flow.ErrEmptyTitle):
		return tghelpers.SendMarkup(c, TextEmptyTitle, keyboard.ForceReply(TextTitlePholder))
	case errors.Is(err, flow.ErrInsufficientSelection):
		return tghelpers.SendText(c, TextNeedTwoDates)
	case err != nil:
		_ = tghelpers.SendText(c, TextPublishFailed)
		return err
	}
	return tghelpers.SendText(c, fmt.Sprintf(TextPollCreated, draft.Title))
}

func (h *Handlers) tallyPoll(ctx context.Context, c tele.Context, userID int64, pollID string) error {
	p, ok, err := h.claimPoll(ctx, c, userID, pollID, pollstore.StatusClosed)
	if !ok {
		return err
	}
	api := h.api(c)
	result, err := api.StopPoll(pollMessage(p.ChatID, p.MessageID))
	if err != nil {
		h.reopen(ctx, p.ID, pollstore.StatusClosed)
		_ = callbacks.Notify(c, TextPollFailed)
		return fmt.Errorf("stop poll: %w", err)
	}
	metrics.Polls.WithLabelValues("tallied").Inc()

	_ = callbacks.Respond(c)
	if _, err := api.EditReplyMarkup(c.Callback(), nil); err != nil {
		logger.LogEvent(ctx, logger.Polls, slog.LevelDebug, "poll.keyboard_clear_failed",
			slog.String("err", err.Error()),
		)
	}
	return c.Send(Summarize(p.Title, result))
}

func (h *Handlers) cancelPoll(ctx context.Context, c tele.Context, userID int64, pollID string) error {
	p, ok, err := h.claimPoll(ctx, c, userID, pollID, pollstore.StatusCancelled)
	if !ok {
		return err
	}
	if err := h.api(c).Delete(pollMessage(p.ChatID, p.MessageID)); err != nil {
		h.reopen(ctx, p.ID, pollstore.StatusCancelled)
		_ = callbacks.Notify(c, TextPollFailed)
		return fmt.Errorf("delete poll: %w", err)
	}
	metrics.Polls.WithLabelValues("cancelled").Inc()

	_ = callbacks.Notify(c, TextPollCancelled)
	return c.Delete()
}

// claimPoll checks that userID created pollID and moves it from open to
// status, so a repeated press finds it no longer open. When ok is false the
// user has already been notified.
func (h *Handlers) claimPoll(ctx context.Context, c tele.Context, userID int64, pollID string, status pollstore.Status) (pollstore.Poll, bool, error) {
	p, err := h.polls.Get(ctx, pollID)
	switch {
	case errors.Is(err, pollstore.ErrNotFound):
		return p, false, callbacks.Notify(c, TextPollNotFound)
	case err != nil:
		return p, false, err
	case p.CreatorID != userID:
		return p, false, callbacks.Notify(c, TextNotPollAuthor)
	}

	err = h.polls.Transition(ctx, p.ID, pollstore.StatusOpen, status)
	switch {
	case errors.Is(err, pollstore.ErrStatusConflict):
		return p, false, callbacks.Notify(c, TextPollNotOpen)
	case err != nil:
		return p, false, err
	}
	logger.LogEvent(ctx, logger.Polls, slog.LevelInfo, "poll."+string(status),
		slog.String("poll_id", p.ID),
	)
	return p, true, nil
}

// reopen undoes claimPoll after the Telegram call failed.
func (h *Handlers) reopen(ctx context.Context, id string, from pollstore.Status) {
	if err := h.polls.Transition(ctx, id, from, pollstore.StatusOpen); err != nil {
		logger.LogEvent(ctx, logger.Polls, slog.LevelWarn, "poll.reopen_failed",
			slog.String("poll_id", id),
			slog.String("status", string(from)),
			slog.String("err", err.Error()),
		)
	}
}

func (h *Handlers) publisher(c tele.Context) *Publisher {
	return NewPublisher(h.api(c), h.polls, h.groupChatID)
}

func (h *Handlers) api(c tele.Context) Messenger {
	if h.messenger != nil {
		return h.messenger
	}
	return c.Bot()
}
