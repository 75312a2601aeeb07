package flow

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/core/logger"
	"github.com/m3rciful/teleads/core/telegram/helpers"
)

// HandlerFunc handles one text message while a dialogue is in the matched
// state. arg carries the suffix for prefixed states (the advert ID), and is
// empty for exact states.
type HandlerFunc func(ctx context.Context, c tele.Context, arg string) error

// Router dispatches incoming text to the handler registered for the user's
// current conversation state. It plugs into the message route as its FSM.
type Router struct {
	sessions *Sessions
	exact    map[string]HandlerFunc
	prefix   map[string]HandlerFunc
}

func NewRouter(sessions *Sessions) *Router {
	return &Router{
		sessions: sessions,
		exact:    make(map[string]HandlerFunc),
		prefix:   make(map[string]HandlerFunc),
	}
}

// Handle registers a handler for an exact state.
func (r *Router) Handle(state string, h HandlerFunc) {
	r.exact[state] = h
}

// HandlePrefix registers a handler for states of the form "<prefix><arg>".
func (r *Router) HandlePrefix(prefix string, h HandlerFunc) {
	r.prefix[prefix] = h
}

func (r *Router) lookup(state string) (HandlerFunc, string, bool) {
	if h, ok := r.exact[state]; ok {
		return h, "", true
	}
	for prefix, h := range r.prefix {
		if strings.HasPrefix(state, prefix) {
			return h, strings.TrimPrefix(state, prefix), true
		}
	}
	return nil, "", false
}

// InProgress reports whether the sender is mid-dialogue.
func (r *Router) InProgress(c tele.Context) bool {
	if c.Sender() == nil {
		return false
	}
	ctx := helpers.BuildContext(c)
	state, err := r.sessions.State(ctx, c.Sender().ID)
	if err != nil {
		logger.Warn(ctx, "flow", "state_read_failed", slog.String("error", err.Error()))
		return false
	}
	_, _, ok := r.lookup(state)
	return ok
}

// Dispatch routes the message to the current state's handler. An unknown
// state is treated as idle and the dialogue is dropped.
func (r *Router) Dispatch(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	state, err := r.sessions.State(ctx, userID)
	if err != nil {
		return err
	}
	h, arg, ok := r.lookup(state)
	if !ok {
		logger.Warn(ctx, "flow", "unknown_state",
			slog.Int64("user_id", userID), slog.String("state", logger.Sanitize(state)))
		return r.sessions.Clear(ctx, userID)
	}
	return h(ctx, c, arg)
}
