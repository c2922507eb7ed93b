// Package commands describes the slash commands a Registry dispatches.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one registered slash command.
//
// Hidden commands dispatch normally but never appear in a published menu.
// AdminOnly commands are listed only in the admin's chat-scoped menu and run
// behind the admin guard, which hands other callers to its reject handler.
// They are also never matched from plain message text. Aliases dispatch to
// the same Handler without being listed.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
