package telegram

import (
	"errors"
	"testing"

	"github.com/m3rciful/datepoll/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	mustRegister := func(name string, cmd commands.Command) {
		t.Helper()
		if err := reg.RegisterCommand(name, cmd); err != nil {
			t.Fatal(err)
		}
	}
	mustRegister("/start", commands.Command{Handler: noop, Description: "Open the calendar"})
	mustRegister("/getid", commands.Command{Handler: noop, Description: "Show ids", Hidden: true})
	mustRegister("/sessions", commands.Command{Handler: noop, Description: "Sessions", AdminOnly: true})
	mustRegister("/help", commands.Command{Handler: noop, Description: "Help", Aliases: []string{"помощь"}})

	if err := reg.RegisterCommand("reset", commands.Command{Handler: noop, Description: "no slash"}); err == nil {
		t.Fatal("command without slash prefix accepted")
	}
	if err := reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "again"}); err == nil {
		t.Fatal("duplicate command accepted")
	}
	if err := reg.RegisterCommand("/empty", commands.Command{Handler: noop}); err == nil {
		t.Fatal("command without description accepted")
	}

	visible := reg.ListCommands(true)
	if len(visible) != 2 || visible[0].Text != "/help" || visible[1].Text != "/start" {
		t.Fatalf("visible = %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 4 {
		t.Fatalf("all = %d, want 4", len(all))
	}
	admin := reg.AdminCommands()
	if len(admin) != 3 || admin[1].Text != "/sessions" {
		t.Fatalf("admin = %+v", admin)
	}
	if key, _, ok := reg.LookupCommand("помощь"); !ok || key != "/help" {
		t.Fatalf("alias lookup = %q, %v", key, ok)
	}
	if _, _, ok := reg.LookupCommand("reset"); ok {
		t.Fatal("command without slash prefix was registered")
	}

	snapshot := reg.Commands()
	delete(snapshot, "/start")
	if _, _, ok := reg.LookupCommand("/start"); !ok {
		t.Fatal("Commands snapshot aliases registry state")
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("nav", noop); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterCallback("nav", noop); err == nil {
		t.Fatal("duplicate callback accepted")
	}
	if err := reg.RegisterCallback("", noop); err == nil {
		t.Fatal("empty key accepted")
	}
	if _, ok := reg.GetCallback("nav"); !ok {
		t.Fatal("nav not found")
	}
	if keys := reg.ListCallbacks(); len(keys) != 1 || keys[0] != "nav" {
		t.Fatalf("keys = %v", keys)
	}
}

type menuRecorder struct {
	calls [][]interface{}
	err   error
}

func (m *menuRecorder) SetCommands(opts ...interface{}) error {
	m.calls = append(m.calls, opts)
	return m.err
}

func TestInitBotCommands(t *testing.T) {
	reg := NewRegistry()
	_ = reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	_ = reg.RegisterCommand("/sessions", commands.Command{Handler: noop, Description: "Sessions", AdminOnly: true})

	rec := &menuRecorder{}
	InitBotCommands(rec, reg, 0)
	if len(rec.calls) != 1 {
		t.Fatalf("calls without admin = %d, want 1", len(rec.calls))
	}

	rec = &menuRecorder{err: errors.New("boom")}
	InitBotCommands(rec, reg, 42)
	if len(rec.calls) != 2 {
		t.Fatalf("calls with admin = %d, want 2", len(rec.calls))
	}
	adminMenu, ok := rec.calls[1][0].([]tele.Command)
	if !ok || len(adminMenu) != 2 {
		t.Fatalf("admin menu = %#v", rec.calls[1][0])
	}
	scope, ok := rec.calls[1][1].(tele.CommandScope)
	if !ok || scope.ChatID != 42 || scope.Type != tele.CommandScopeChat {
		t.Fatalf("scope = %#v", rec.calls[1][1])
	}
}
