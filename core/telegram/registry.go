package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/datepoll/core/logger"
	"github.com/m3rciful/datepoll/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry is the table of slash commands and callback keys the bot answers,
// plus the fallbacks used when nothing matches.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback fallback
// just acknowledges the press.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func commandProblem(name string, cmd commands.Command) string {
	switch {
	case cmd.Handler == nil:
		return "nil_handler"
	case strings.TrimSpace(cmd.Description) == "":
		return "no_description"
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return "no_slash_prefix"
	}
	return ""
}

// RegisterCommand adds cmd under name, which must start with a slash.
// Invalid and duplicate registrations are logged and rejected.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if problem := commandProblem(name, cmd); problem != "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", problem),
		)
		return fmt.Errorf("command %q: %s", name, problem)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return fmt.Errorf("command %q already registered", name)
	}
	r.commands[name] = cmd
	return nil
}

// menu lists commands accepted by keep, sorted by name.
func (r *Registry) menu(keep func(commands.Command) bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]tele.Command, 0, len(r.commands))
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[name]
		if keep(meta) {
			out = append(out, tele.Command{Text: name, Description: meta.Description})
		}
	}
	return out
}

// ListCommands returns the registered commands sorted by name. With
// visibleOnly, hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	return r.menu(func(meta commands.Command) bool {
		return !visibleOnly || (!meta.Hidden && !meta.AdminOnly)
	})
}

// AdminCommands is the menu shown to the administrator: everything
// visible plus the admin-only commands.
func (r *Registry) AdminCommands() []tele.Command {
	return r.menu(func(meta commands.Command) bool { return !meta.Hidden })
}

// LookupCommand resolves name, with or without the leading slash, against
// command names first and aliases second.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	bare := strings.TrimPrefix(name, "/")
	for key, cmd := range r.commands {
		if slices.Contains(cmd.Aliases, name) || slices.Contains(cmd.Aliases, bare) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// Commands returns a snapshot of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback binds handler to a callback unique key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return fmt.Errorf("callback %q: invalid registration", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback %q already registered", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for presses with unknown keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that matches no command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// menuSetter is the part of *tele.Bot used to publish command menus.
type menuSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the default command menu and, when adminID is
// set, a wider menu scoped to the administrator's private chat.
func InitBotCommands(bot menuSetter, reg *Registry, adminID int64) {
	if bot == nil || reg == nil {
		return
	}
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("scope", "default"),
			slog.String("err", err.Error()),
		)
	}
	if adminID == 0 {
		return
	}
	scope := tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID}
	if err := bot.SetCommands(reg.AdminCommands(), scope); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("scope", "admin"),
			slog.Int64("chat_id", adminID),
			slog.String("err", err.Error()),
		)
	}
}
