package bot

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/core/telegram/callbacks"
	"github.com/m3rciful/teleads/core/telegram/helpers"
	"github.com/m3rciful/teleads/core/telegram/keyboard"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/flow"
)

// cbMainMenu is also the universal "back" target: it aborts whatever
// dialogue is in flight before rendering the menu.
func (b *Bot) cbMainMenu(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if err := b.sessions.Clear(ctx, c.Sender().ID); err != nil {
		return err
	}
	return b.sendMainMenu(c)
}

func (b *Bot) cbChannelsMenu(c tele.Context) error {
	return b.sendChannelsMenu(helpers.BuildContext(c), c, "")
}

func (b *Bot) cbAddChannel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if err := b.sessions.Enter(ctx, c.Sender().ID, flow.StateAwaitingChannel); err != nil {
		return err
	}
	return respond(c, "Send a channel link, @username or numeric ID.",
		keyboard.InlineButtonsRows(backRow("main")))
}

func (b *Bot) cbAdvertsMenu(c tele.Context) error {
	return b.sendAdvertsMenu(helpers.BuildContext(c), c)
}

func (b *Bot) cbNewAd(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if err := b.sessions.Enter(ctx, c.Sender().ID, flow.StateAwaitingAdContent); err != nil {
		return err
	}
	return respond(c, "Send the advert text.", keyboard.InlineButtonsRows(backRow("main")))
}

func (b *Bot) findAd(c tele.Context) (ads.Advert, error) {
	ctx := helpers.BuildContext(c)
	ad, err := b.repo.Find(ctx, callbacks.CallbackPayload(c))
	if errors.Is(err, ads.ErrNotFound) {
		return ad, respond(c, "That advert no longer exists.",
			keyboard.InlineButtonsRows(backRow("adverts")))
	}
	return ad, err
}

func (b *Bot) cbAdDetail(c tele.Context) error {
	ad, err := b.findAd(c)
	if err != nil || ad.ID == "" {
		return err
	}
	return b.sendAdDetail(helpers.BuildContext(c), c, ad)
}

func (b *Bot) cbToggleAd(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	id := callbacks.CallbackPayload(c)
	err := b.repo.Update(ctx, id, func(a *ads.Advert) { a.Active = !a.Active })
	if errors.Is(err, ads.ErrNotFound) {
		return respond(c, "That advert no longer exists.",
			keyboard.InlineButtonsRows(backRow("adverts")))
	}
	if err != nil {
		return err
	}
	ad, err := b.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	return b.sendAdDetail(ctx, c, ad)
}

func (b *Bot) cbDeleteAd(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if err := b.repo.Delete(ctx, callbacks.CallbackPayload(c)); err != nil && !errors.Is(err, ads.ErrNotFound) {
		return err
	}
	return b.sendAdvertsMenu(ctx, c)
}

func (b *Bot) cbEditContent(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	id := callbacks.CallbackPayload(c)
	if err := b.sessions.Enter(ctx, c.Sender().ID, flow.PrefixEditingText+id); err != nil {
		return err
	}
	return respond(c, "Send the new advert text.", keyboard.InlineButtonsRows(backRow("main")))
}

func (b *Bot) cbEditSchedule(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	id := callbacks.CallbackPayload(c)
	if err := b.sessions.Enter(ctx, c.Sender().ID, flow.PrefixEditingSchedule+id); err != nil {
		return err
	}
	return respond(c, "Send the new schedule, e.g. \"2-10 GMT+3\".",
		keyboard.InlineButtonsRows(backRow("main")))
}

func (b *Bot) cbEditChannels(c tele.Context) error {
	ad, err := b.findAd(c)
	if err != nil || ad.ID == "" {
		return err
	}
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	if err := b.sessions.Enter(ctx, userID, flow.StateEditingChannels); err != nil {
		return err
	}
	if err := b.sessions.SaveEdit(ctx, userID, flow.EditDraft{AdID: ad.ID, Channels: ad.Channels}); err != nil {
		return err
	}

	channels, err := b.repo.Channels(ctx)
	if err != nil {
		return err
	}
	return respond(c, "Select the channels for this advert:",
		b.channelPicker(ctx, channels, ad.Channels, "edit_ch", "done_edit_channels"))
}

// pickedChannel resolves the channel index carried in the callback payload.
func (b *Bot) pickedChannel(c tele.Context) (string, []string, error) {
	ctx := helpers.BuildContext(c)
	channels, err := b.repo.Channels(ctx)
	if err != nil {
		return "", nil, err
	}
	idx, err := callbacks.PayloadInt(c)
	if err != nil || idx < 0 || idx >= len(channels) {
		return "", channels, fmt.Errorf("stale channel index %q", callbacks.CallbackPayload(c))
	}
	return channels[idx], channels, nil
}

func (b *Bot) cbToggleDraftChannel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	ch, channels, err := b.pickedChannel(c)
	if err != nil {
		return respond(c, "That list is out of date, open it again.",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	userID := c.Sender().ID
	draft, err := b.sessions.Draft(ctx, userID)
	if err != nil {
		return err
	}
	draft.Channels = ads.ToggleChannel(draft.Channels, ch)
	if err := b.sessions.SaveDraft(ctx, userID, draft); err != nil {
		return err
	}
	return respond(c, "Select the channels for the new advert:",
		b.channelPicker(ctx, channels, draft.Channels, "ch", "done_new_channels"))
}

func (b *Bot) cbFinishNewAd(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	draft, err := b.sessions.Draft(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := b.repo.Create(ctx, draft.Content, draft.Schedule, draft.Channels); err != nil {
		return err
	}
	if err := b.sessions.Clear(ctx, userID); err != nil {
		return err
	}
	return respond(c, "Advert created. It starts paused; activate it from the adverts list.",
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "📢 Adverts", Unique: "adverts"}},
			backRow("main"),
		))
}

func (b *Bot) cbToggleEditChannel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	ch, channels, err := b.pickedChannel(c)
	if err != nil {
		return respond(c, "That list is out of date, open it again.",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	userID := c.Sender().ID
	edit, err := b.sessions.Edit(ctx, userID)
	if err != nil {
		return err
	}
	edit.Channels = ads.ToggleChannel(edit.Channels, ch)
	if err := b.sessions.SaveEdit(ctx, userID, edit); err != nil {
		return err
	}
	return respond(c, "Select the channels for this advert:",
		b.channelPicker(ctx, channels, edit.Channels, "edit_ch", "done_edit_channels"))
}

func (b *Bot) cbFinishEditChannels(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	edit, err := b.sessions.Edit(ctx, userID)
	if err != nil {
		return err
	}
	if err := b.repo.Update(ctx, edit.AdID, func(a *ads.Advert) { a.Channels = edit.Channels }); err != nil {
		return err
	}
	if err := b.sessions.Clear(ctx, userID); err != nil {
		return err
	}
	ad, err := b.repo.Find(ctx, edit.AdID)
	if err != nil {
		return err
	}
	return b.sendAdDetail(ctx, c, ad)
}

func (b *Bot) cbRunSchedulerOnce(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	rep, err := b.sched.RunOnce(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Scheduler pass finished.\nExamined: %d\nDue: %d\nDelivered: %d\nFailed: %d",
		rep.Examined, rep.Due, rep.Delivered, rep.Failed)
	if rep.ParseErrors > 0 {
		text += fmt.Sprintf("\nBroken schedules: %d", rep.ParseErrors)
	}
	return respond(c, text, keyboard.InlineButtonsRows(backRow("main")))
}

func (b *Bot) cbInstantSelectAd(c tele.Context) error {
	return b.sendInstantAdList(helpers.BuildContext(c), c)
}

func (b *Bot) cbInstantAd(c tele.Context) error {
	ad, err := b.findAd(c)
	if err != nil || ad.ID == "" {
		return err
	}
	ctx := helpers.BuildContext(c)

	targets, err := b.sched.Targets(ctx, ad)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return respond(c, "This advert has no channels yet.",
			keyboard.InlineButtonsRows(backRow("adverts")))
	}

	rows := make([][]keyboard.InlineBtn, 0, len(targets)+2)
	for _, ch := range targets {
		key := b.selections.Put(flow.Selection{AdID: ad.ID, Channel: ch})
		rows = append(rows, []keyboard.InlineBtn{{Text: b.resolver.Title(ctx, ch), Unique: "instant_ch", Data: key}})
	}
	allKey := b.selections.Put(flow.Selection{AdID: ad.ID})
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "📣 All channels", Unique: "instant_ch", Data: allKey}},
		backRow("main"),
	)
	return respond(c, "Post to which channel?", keyboard.InlineButtonsRows(rows...))
}

func (b *Bot) cbInstantChannel(c tele.Context) error {
	ctx := helpers.BuildContext(c)

	sel, ok := b.selections.Claim(callbacks.CallbackPayload(c))
	if !ok {
		return respond(c, "That menu has expired, open it again.",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	if sel.Channel == "" {
		results, err := b.sched.InstantPostAll(ctx, sel.AdID)
		if err != nil {
			return err
		}
		delivered, failed := 0, 0
		var lines []string
		for _, res := range results {
			if res.OK() {
				delivered++
				continue
			}
			failed++
			lines = append(lines, fmt.Sprintf("• %s: %s", b.resolver.Title(ctx, res.Channel), res.Status))
		}
		text := fmt.Sprintf("Posted to %d channel(s), %d failed.", delivered, failed)
		if len(lines) > 0 {
			text += "\n" + strings.Join(lines, "\n")
		}
		return respond(c, text, keyboard.InlineButtonsRows(backRow("main")))
	}

	res, err := b.sched.InstantPost(ctx, sel.AdID, sel.Channel)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Posted to %s.", b.resolver.Title(ctx, sel.Channel))
	if !res.OK() {
		text = fmt.Sprintf("Could not post to %s: %s.", b.resolver.Title(ctx, sel.Channel), res.Status)
	}
	return respond(c, text, keyboard.InlineButtonsRows(backRow("main")))
}
