// Package bot wires the admin-facing Telegram UI: the menu tree, the
// authoring and editing dialogues, and the instant-posting flow.
package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/teleads/core/config"
	tg "github.com/m3rciful/teleads/core/telegram"
	"github.com/m3rciful/teleads/core/telegram/commands"
	"github.com/m3rciful/teleads/core/telegram/helpers"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/flow"
	"github.com/m3rciful/teleads/internal/sched"
)

// Resolver turns user input into a canonical channel key and renders channel
// titles for menus. Satisfied by *poster.TelebotClient.
type Resolver interface {
	Resolve(ctx context.Context, input string) (string, error)
	Title(ctx context.Context, channel string) string
}

// Bot holds everything the UI handlers need.
type Bot struct {
	cfg        *coreconfig.Config
	repo       *ads.Repository
	sessions   *flow.Sessions
	sched      *sched.Scheduler
	selections *flow.SelectionMap
	resolver   Resolver
}

// New assembles the UI layer. The scheduler and resolver are attached later
// via Bind, once the Telegram connection exists.
func New(cfg *coreconfig.Config, repo *ads.Repository, sessions *flow.Sessions) *Bot {
	return &Bot{
		cfg:        cfg,
		repo:       repo,
		sessions:   sessions,
		selections: flow.NewSelectionMap(),
	}
}

// Bind attaches the runtime pieces that depend on a live bot connection.
// Must be called before the first update is processed.
func (b *Bot) Bind(sch *sched.Scheduler, resolver Resolver) {
	b.sched = sch
	b.resolver = resolver
}

// Register installs commands, callbacks and the text fallback.
func (b *Bot) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Open the main menu",
		AdminOnly:   true,
	})

	for key, handler := range map[string]tele.HandlerFunc{
		"main":               b.cbMainMenu,
		"channels":           b.cbChannelsMenu,
		"add_channel":        b.cbAddChannel,
		"adverts":            b.cbAdvertsMenu,
		"new_ad":             b.cbNewAd,
		"edit_ad":            b.cbAdDetail,
		"toggle_ad":          b.cbToggleAd,
		"delete_ad":          b.cbDeleteAd,
		"edit_content":       b.cbEditContent,
		"edit_schedule":      b.cbEditSchedule,
		"edit_channels":      b.cbEditChannels,
		"ch":                 b.cbToggleDraftChannel,
		"edit_ch":            b.cbToggleEditChannel,
		"done_new_channels":  b.cbFinishNewAd,
		"done_edit_channels": b.cbFinishEditChannels,
		"run_scheduler_once": b.cbRunSchedulerOnce,
		"instant_select_ad":  b.cbInstantSelectAd,
		"instant_ad":         b.cbInstantAd,
		"instant_ch":         b.cbInstantChannel,
	} {
		_ = reg.RegisterCallback(key, b.adminOnly(handler))
	}

	reg.SetTextFallback(b.handleUnknownText)
}

// Flows builds the conversation router for free-text dialogue steps.
func (b *Bot) Flows() *flow.Router {
	r := flow.NewRouter(b.sessions)
	r.Handle(flow.StateAwaitingChannel, b.flowAwaitingChannel)
	r.Handle(flow.StateAwaitingAdContent, b.flowAwaitingAdContent)
	r.Handle(flow.StateAwaitingAdSchedule, b.flowAwaitingAdSchedule)
	r.Handle(flow.StateAwaitingAdChannels, b.flowAwaitingAdChannels)
	r.Handle(flow.StateEditingChannels, b.flowEditingChannels)
	r.HandlePrefix(flow.PrefixEditingText, b.flowEditingText)
	r.HandlePrefix(flow.PrefixEditingSchedule, b.flowEditingSchedule)
	return r
}

// adminOnly drops callback taps from anyone but the configured admin. The
// command path is covered by the admin middleware; callbacks need their own
// guard because the callback route is shared.
func (b *Bot) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || c.Sender().ID != b.cfg.Telegram.AdminID {
			return nil
		}
		return next(c)
	}
}

// handleStart drops any in-flight dialogue and shows the main menu.
func (b *Bot) handleStart(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if err := b.sessions.Clear(ctx, c.Sender().ID); err != nil {
		return err
	}
	return b.sendMainMenu(c)
}

func (b *Bot) handleUnknownText(c tele.Context) error {
	if c.Sender() == nil || c.Sender().ID != b.cfg.Telegram.AdminID {
		return nil
	}
	return b.sendMainMenu(c)
}
