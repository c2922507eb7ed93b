package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return b.NewContext(upd)
}

func messageUpdate(id int, userID int64) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   "hello",
	}}
}

func TestRateLimitDropsBurstAndHonoursExclusions(t *testing.T) {
	clock := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newContext(t, messageUpdate(1, 7)))
	_ = h(newContext(t, messageUpdate(2, 7)))
	if calls != 1 || limited != 1 {
		t.Fatalf("calls=%d limited=%d, want 1 and 1", calls, limited)
	}

	cb := tele.Update{ID: 3, Callback: &tele.Callback{Sender: &tele.User{ID: 7}}}
	_ = h(newContext(t, cb))
	if calls != 2 {
		t.Fatalf("excluded callback was limited")
	}

	clock = clock.Add(2 * time.Second)
	_ = h(newContext(t, messageUpdate(4, 7)))
	if calls != 3 {
		t.Fatalf("message after interval was limited")
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  42,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newContext(t, messageUpdate(1, 7)))
	_ = h(newContext(t, messageUpdate(2, 42)))
	if calls != 1 || rejected != 1 {
		t.Fatalf("calls=%d rejected=%d", calls, rejected)
	}

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { calls++; return nil })
	_ = closed(newContext(t, messageUpdate(3, 42)))
	if calls != 1 {
		t.Fatalf("handler ran without a configured admin")
	}
}

func TestRecoverMiddlewareTurnsPanicIntoError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(newContext(t, messageUpdate(1, 1))); err == nil {
		t.Fatal("expected error from recovered panic")
	}

	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	if err := h(newContext(t, messageUpdate(2, 1))); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateKind(t *testing.T) {
	if k := UpdateKind(messageUpdate(1, 1)); k != "message" {
		t.Fatalf("kind = %q", k)
	}
	if k := UpdateKind(tele.Update{PollAnswer: &tele.PollAnswer{}}); k != "poll_answer" {
		t.Fatalf("kind = %q", k)
	}
	if k := UpdateKind(tele.Update{}); k != "other" {
		t.Fatalf("kind = %q", k)
	}
}
