package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command describes a slash command: its handler plus the metadata the
// registry uses for menu listing and access control. AdminOnly commands are
// gated to the configured admin and never appear in the public command menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
