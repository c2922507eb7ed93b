package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/datepoll/core/telegram"
	"github.com/m3rciful/datepoll/internal/action"
	"github.com/m3rciful/datepoll/internal/calendar"
	"github.com/m3rciful/datepoll/internal/flow"
	"github.com/m3rciful/datepoll/internal/pollstore"
	"github.com/m3rciful/datepoll/internal/session"

	tele "gopkg.in/telebot.v4"
)

const (
	author   = int64(7)
	stranger = int64(8)
	chat     = int64(7)
)

// fakeCtx records what handlers send through the update context.
type fakeCtx struct {
	tele.Context
	sent      []outgoing
	edited    []*tele.ReplyMarkup
	responses []*tele.CallbackResponse
	deleted   bool
}

type outgoing struct {
	what   interface{}
	markup *tele.ReplyMarkup
}

func (f *fakeCtx) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, outgoing{what: what, markup: markupOf(opts)})
	return nil
}

func (f *fakeCtx) Edit(what interface{}, _ ...interface{}) error {
	m, _ := what.(*tele.ReplyMarkup)
	f.edited = append(f.edited, m)
	return nil
}

func (f *fakeCtx) Respond(resp ...*tele.CallbackResponse) error {
	r := &tele.CallbackResponse{}
	if len(resp) > 0 && resp[0] != nil {
		r = resp[0]
	}
	f.responses = append(f.responses, r)
	return nil
}

func (f *fakeCtx) Delete() error {
	f.deleted = true
	return nil
}

func (f *fakeCtx) lastText() string {
	if len(f.sent) == 0 {
		return ""
	}
	s, _ := f.sent[len(f.sent)-1].what.(string)
	return s
}

func (f *fakeCtx) notice() string {
	if len(f.responses) == 0 {
		return ""
	}
	return f.responses[len(f.responses)-1].Text
}

func markupOf(opts []interface{}) *tele.ReplyMarkup {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			return v.ReplyMarkup
		}
	}
	return nil
}

// fakeAPI stands in for the Telegram API used outside the update.
type fakeAPI struct {
	sent    []apiSend
	nextID  int
	sendErr error
	stopped []tele.Editable
	deleted []tele.Editable
	result  *tele.Poll
	stopErr error
	onStop  func()
}

type apiSend struct {
	to   string
	what interface{}
	opts *tele.SendOptions
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	s := apiSend{to: to.Recipient(), what: what}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			s.opts = so
		}
	}
	f.sent = append(f.sent, s)
	id, _ := strconv.ParseInt(to.Recipient(), 10, 64)
	return &tele.Message{ID: 100 + f.nextID, Chat: &tele.Chat{ID: id}}, nil
}

func (f *fakeAPI) EditReplyMarkup(msg tele.Editable, _ *tele.ReplyMarkup) (*tele.Message, error) {
	return &tele.Message{}, nil
}

func (f *fakeAPI) StopPoll(msg tele.Editable, _ ...interface{}) (*tele.Poll, error) {
	f.stopped = append(f.stopped, msg)
	if f.onStop != nil {
		f.onStop()
	}
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.result, nil
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	f.deleted = append(f.deleted, msg)
	return nil
}

type env struct {
	t     *testing.T
	tb    *tele.Bot
	h     *Handlers
	api   *fakeAPI
	polls *pollstore.Memory
	reg   *tg.Registry
}

func newEnv(t *testing.T, groupChatID int64) *env {
	t.Helper()
	f, err := calendar.NewFormatter("ru_RU")
	require.NoError(t, err)
	clock := calendar.ClockFunc(func() time.Time {
		return time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)
	})
	svc, err := flow.NewService(flow.Options{
		Store:     session.NewStore(),
		Renderer:  calendar.NewRenderer(f, clock),
		Formatter: f,
	})
	require.NoError(t, err)

	api := &fakeAPI{}
	polls := pollstore.NewMemory()
	h, err := New(Options{
		Flow:        svc,
		Polls:       polls,
		Clock:       clock,
		Location:    time.UTC,
		GroupChatID: groupChatID,
		Messenger:   api,
	})
	require.NoError(t, err)

	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))

	tb, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return &env{t: t, tb: tb, h: h, api: api, polls: polls, reg: reg}
}

func (e *env) message(userID int64, text string) *fakeCtx {
	msg := &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: chat, Type: tele.ChatPrivate},
		Text:   text,
	}
	if strings.HasPrefix(text, "/") {
		if _, payload, ok := strings.Cut(text, " "); ok {
			msg.Payload = payload
		}
	}
	return &fakeCtx{Context: e.tb.NewContext(tele.Update{ID: 1, Message: msg})}
}

func (e *env) callback(userID int64, a action.Action) *fakeCtx {
	key, payload, err := action.Encode(a)
	require.NoError(e.t, err)
	return e.rawCallback(userID, "\f"+key+"|"+payload)
}

func (e *env) rawCallback(userID int64, data string) *fakeCtx {
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: userID},
		Message: &tele.Message{ID: 50, Chat: &tele.Chat{ID: chat, Type: tele.ChatPrivate}},
		Data:    data,
	}
	return &fakeCtx{Context: e.tb.NewContext(tele.Update{ID: 2, Callback: cb})}
}

func (e *env) command(name string, c tele.Context) error {
	e.t.Helper()
	_, cmd, ok := e.reg.LookupCommand(name)
	require.True(e.t, ok, name)
	return cmd.Handler(c)
}

func (e *env) press(userID int64, a action.Action) *fakeCtx {
	e.t.Helper()
	c := e.callback(userID, a)
	require.NoError(e.t, e.h.onCallback(c))
	return c
}

func buttonTexts(m *tele.ReplyMarkup) []string {
	var out []string
	if m == nil {
		return out
	}
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestRegisterCommandsAndCallbacks(t *testing.T) {
	e := newEnv(t, 0)

	var visible []string
	for _, c := range e.reg.ListCommands(true) {
		visible = append(visible, c.Text)
	}
	assert.Equal(t, []string{"/calendar", "/help", "/polls", "/reset", "/start"}, visible)
	assert.Len(t, e.reg.ListCommands(false), 7)
	assert.ElementsMatch(t, action.Keys(), e.reg.ListCallbacks())
	assert.NotNil(t, e.reg.TextFallback())
}

func TestStartSendsCalendar(t *testing.T) {
	e := newEnv(t, 0)
	c := e.message(author, "/start")
	require.NoError(t, e.command("/start", c))

	require.Len(t, c.sent, 1)
	assert.Equal(t, TextGreeting, c.sent[0].what)
	texts := buttonTexts(c.sent[0].markup)
	require.NotEmpty(t, texts)
	assert.True(t, strings.HasPrefix(texts[0], "📅 "), texts[0])
	assert.Contains(t, texts[0], "2025")
	assert.Contains(t, texts, "🔹5")
	assert.NotContains(t, texts, calendar.CreatePollLabel)
}

func TestCalendarMonthArgument(t *testing.T) {
	e := newEnv(t, 0)

	c := e.message(author, "/calendar 2026-02")
	require.NoError(t, e.command("/calendar", c))
	assert.Equal(t, TextCalendar, c.sent[0].what)
	texts := buttonTexts(c.sent[0].markup)
	assert.Contains(t, texts[0], "2026")
	assert.Contains(t, texts, "28")
	assert.NotContains(t, texts, "29")

	bad := e.message(author, "/calendar someday")
	require.NoError(t, e.command("/calendar", bad))
	assert.Equal(t, TextBadMonth, bad.lastText())
}

func TestToggleEditsMarkupInPlace(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))

	c := e.press(author, action.ToggleDate{Date: "2025-10-10"})
	require.Len(t, c.edited, 1)
	assert.Contains(t, buttonTexts(c.edited[0]), "✅10")
	assert.Empty(t, c.sent)

	c = e.press(author, action.ToggleDate{Date: "2025-10-20"})
	assert.Contains(t, buttonTexts(c.edited[0]), calendar.CreatePollLabel)
}

func TestNavigateEditsMonth(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))

	c := e.press(author, action.Navigate{Year: 2025, Month: 12})
	require.Len(t, c.edited, 1)
	assert.Contains(t, buttonTexts(c.edited[0])[0], "2026")
}

func TestButtonsWithoutSessionAreIgnored(t *testing.T) {
	e := newEnv(t, 0)

	c := e.press(author, action.Navigate{Year: 2025, Month: 3})
	assert.Empty(t, c.edited)
	assert.Empty(t, c.sent)
	assert.Empty(t, c.responses)

	c = e.press(author, action.ToggleDate{Date: "2025-10-10"})
	assert.Empty(t, c.edited)
}

func TestCreatePollNeedsTwoDates(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))
	e.press(author, action.ToggleDate{Date: "2025-10-10"})

	c := e.press(author, action.CreatePoll{})
	assert.Equal(t, TextNeedTwoDates, c.notice())
	assert.False(t, e.h.InProgress(author))

	c = e.press(stranger, action.CreatePoll{})
	assert.Equal(t, TextNeedTwoDates, c.notice())
}

func TestFullFlowPublishesPoll(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))
	e.press(author, action.ToggleDate{Date: "2025-10-20"})
	e.press(author, action.ToggleDate{Date: "2025-10-10"})

	prompt := e.press(author, action.CreatePoll{})
	require.Len(t, prompt.sent, 1)
	assert.Equal(t, TextTitlePrompt, prompt.sent[0].what)
	require.NotNil(t, prompt.sent[0].markup)
	assert.True(t, prompt.sent[0].markup.ForceReply)
	assert.True(t, e.h.InProgress(author))

	title := e.message(author, "  Raid?  ")
	require.NoError(t, e.h.ManagerHandler(title))
	assert.Equal(t, "✅ Опрос «Raid?» создан!", title.lastText())
	assert.False(t, e.h.InProgress(author))

	require.Len(t, e.api.sent, 2)
	poll, ok := e.api.sent[0].what.(*tele.Poll)
	require.True(t, ok)
	assert.Equal(t, "7", e.api.sent[0].to)
	assert.Equal(t, "Raid?", poll.Question)
	assert.False(t, poll.Anonymous)
	assert.True(t, poll.MultipleAnswers)
	require.Len(t, poll.Options, 2)
	assert.True(t, strings.HasPrefix(poll.Options[0].Text, "10 октября ("), poll.Options[0].Text)
	assert.True(t, strings.HasPrefix(poll.Options[1].Text, "20 октября ("), poll.Options[1].Text)

	manage := e.api.sent[1]
	assert.Equal(t, TextChooseAction, manage.what)
	require.NotNil(t, manage.opts)
	assert.Equal(t, 101, manage.opts.ReplyTo.ID)
	assert.Equal(t, []string{TextTallyButton, TextCancelButton}, buttonTexts(manage.opts.ReplyMarkup))

	list, err := e.polls.ListByCreator(context.Background(), author, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 101, list[0].MessageID)
	assert.Equal(t, []string{"2025-10-10", "2025-10-20"}, list[0].Dates)
	assert.Equal(t, pollstore.StatusOpen, list[0].Status)
}

func TestPollGoesToGroupChat(t *testing.T) {
	e := newEnv(t, -100500)
	require.NoError(t, e.command("/start", e.message(author, "/start")))
	e.press(author, action.ToggleDate{Date: "2025-10-10"})
	e.press(author, action.ToggleDate{Date: "2025-10-11"})
	e.press(author, action.CreatePoll{})

	require.NoError(t, e.h.ManagerHandler(e.message(author, "Game Night")))
	require.NotEmpty(t, e.api.sent)
	assert.Equal(t, "-100500", e.api.sent[0].to)
}

func TestEmptyTitleKeepsWaiting(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))
	e.press(author, action.ToggleDate{Date: "2025-10-10"})
	e.press(author, action.ToggleDate{Date: "2025-10-11"})
	e.press(author, action.CreatePoll{})

	c := e.message(author, "   ")
	require.NoError(t, e.h.ManagerHandler(c))
	assert.Equal(t, TextEmptyTitle, c.lastText())
	assert.True(t, e.h.InProgress(author))
	assert.Empty(t, e.api.sent)
}

func TestPublishFailureKeepsSession(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))
	e.press(author, action.ToggleDate{Date: "2025-10-10"})
	e.press(author, action.ToggleDate{Date: "2025-10-11"})
	e.press(author, action.CreatePoll{})

	e.api.sendErr = errors.New("telegram down")
	c := e.message(author, "Raid?")
	assert.Error(t, e.h.ManagerHandler(c))
	assert.Equal(t, TextPublishFailed, c.lastText())
	assert.True(t, e.h.InProgress(author))
}

func TestResetAndGetID(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.command("/start", e.message(author, "/start")))

	c := e.message(author, "/reset")
	require.NoError(t, e.command("/reset", c))
	assert.Equal(t, TextReset, c.lastText())
	assert.Equal(t, 0, e.h.flow.Sessions().Len())

	c = e.message(author, "/getid")
	require.NoError(t, e.command("/getid", c))
	assert.Equal(t, "ID этого чата: 7", c.lastText())
}

func seedPoll(t *testing.T, e *env) pollstore.Poll {
	t.Helper()
	p := pollstore.Poll{
		ID:        pollstore.NewID(),
		ChatID:    chat,
		MessageID: 77,
		CreatorID: author,
		Title:     "Raid?",
		Dates:     []string{"2025-10-10", "2025-10-20"},
		Options:   []string{"10 октября (Пт)", "20 октября (Пн)"},
		Status:    pollstore.StatusOpen,
	}
	require.NoError(t, e.polls.Save(context.Background(), p))
	return p
}

func TestTallyPoll(t *testing.T) {
	e := newEnv(t, 0)
	p := seedPoll(t, e)
	e.api.result = &tele.Poll{
		VoterCount: 3,
		Options: []tele.PollOption{
			{Text: "10 октября (Пт)", VoterCount: 1},
			{Text: "20 октября (Пн)", VoterCount: 3},
		},
	}

	c := e.press(stranger, action.TallyPoll{PollID: p.ID})
	assert.Equal(t, TextNotPollAuthor, c.notice())
	assert.Empty(t, e.api.stopped)

	c = e.press(author, action.TallyPoll{PollID: p.ID})
	require.Len(t, e.api.stopped, 1)
	assert.Equal(t, pollMessage(chat, 77), e.api.stopped[0])
	assert.True(t, strings.HasPrefix(c.lastText(), "📊 Итоги опроса «Raid?»\n1. 20 октября (Пн): 3"), c.lastText())

	got, err := e.polls.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, pollstore.StatusClosed, got.Status)

	c = e.press(author, action.TallyPoll{PollID: p.ID})
	assert.Equal(t, TextPollNotOpen, c.notice())
}

func TestDoubleTapTalliesOnce(t *testing.T) {
	e := newEnv(t, 0)
	p := seedPoll(t, e)
	e.api.result = &tele.Poll{Options: []tele.PollOption{{Text: "10 октября (Пт)"}, {Text: "20 октября (Пн)"}}}

	var second *fakeCtx
	e.api.onStop = func() {
		e.api.onStop = nil
		second = e.press(author, action.TallyPoll{PollID: p.ID})
	}
	e.press(author, action.TallyPoll{PollID: p.ID})

	require.NotNil(t, second)
	assert.Equal(t, TextPollNotOpen, second.notice())
	assert.Len(t, e.api.stopped, 1)
}

func TestFailedTallyReopensPoll(t *testing.T) {
	e := newEnv(t, 0)
	p := seedPoll(t, e)
	e.api.stopErr = errors.New("message can't be stopped")

	c := e.callback(author, action.TallyPoll{PollID: p.ID})
	assert.Error(t, e.h.onCallback(c))
	assert.Equal(t, TextPollFailed, c.notice())

	got, err := e.polls.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, pollstore.StatusOpen, got.Status)
}

func TestCancelPoll(t *testing.T) {
	e := newEnv(t, 0)
	p := seedPoll(t, e)

	c := e.press(author, action.CancelPoll{PollID: p.ID})
	require.Len(t, e.api.deleted, 1)
	assert.Equal(t, pollMessage(chat, 77), e.api.deleted[0])
	assert.Equal(t, TextPollCancelled, c.notice())
	assert.True(t, c.deleted)

	got, err := e.polls.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, pollstore.StatusCancelled, got.Status)
}

func TestUnknownPollAndButton(t *testing.T) {
	e := newEnv(t, 0)

	c := e.press(author, action.CancelPoll{PollID: pollstore.NewID()})
	assert.Equal(t, TextPollNotFound, c.notice())

	c = e.rawCallback(author, "\fbogus|x")
	err := e.h.onCallback(c)
	assert.ErrorIs(t, err, action.ErrUnknownKey)
	assert.Equal(t, TextUnknownButton, c.notice())
}

func TestPollsCommand(t *testing.T) {
	e := newEnv(t, 0)

	c := e.message(author, "/polls")
	require.NoError(t, e.command("/polls", c))
	assert.Equal(t, TextNoPolls, c.lastText())

	seedPoll(t, e)
	c = e.message(author, "/polls")
	require.NoError(t, e.command("/polls", c))
	assert.Contains(t, c.lastText(), TextPollsHeader)
	assert.Contains(t, c.lastText(), "*Raid?*: открыт (вариантов: 2)")
}

func TestUnknownTextOnlyInPrivate(t *testing.T) {
	e := newEnv(t, 0)

	c := e.message(author, "hello")
	require.NoError(t, e.h.UnknownText()(c))
	assert.Equal(t, TextUnknown, c.lastText())

	group := &fakeCtx{Context: e.tb.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: author},
		Chat:   &tele.Chat{ID: -1, Type: tele.ChatGroup},
		Text:   "hello",
	}})}
	require.NoError(t, e.h.UnknownText()(group))
	assert.Empty(t, group.sent)
}
