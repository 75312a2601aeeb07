package bot

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/core/telegram/keyboard"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/flow"
	"github.com/m3rciful/teleads/internal/schedule"
)

func (b *Bot) flowAwaitingChannel(ctx context.Context, c tele.Context, _ string) error {
	key, err := b.resolver.Resolve(ctx, c.Text())
	if err != nil {
		// Keep the dialogue open so the admin can retry.
		return respond(c, "Could not resolve that channel. Send a link, @username or numeric ID.",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	added, err := b.repo.AddChannel(ctx, key)
	if err != nil {
		return err
	}
	if err := b.sessions.Clear(ctx, c.Sender().ID); err != nil {
		return err
	}

	note := "Channel added."
	if !added {
		note = "That channel is already in the list."
	}
	return b.sendChannelsMenu(ctx, c, note)
}

func (b *Bot) flowAwaitingAdContent(ctx context.Context, c tele.Context, _ string) error {
	content := strings.TrimSpace(c.Text())
	if content == "" {
		return respond(c, "The advert text cannot be empty. Send the text.",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	userID := c.Sender().ID
	if err := b.sessions.SaveContent(ctx, userID, content); err != nil {
		return err
	}
	if err := b.sessions.Set(ctx, userID, flow.StateAwaitingAdSchedule); err != nil {
		return err
	}
	return respond(c, "When should it run? Send a daily window like \"2-10 GMT+3\".",
		keyboard.InlineButtonsRows(backRow("main")))
}

// flowAwaitingAdSchedule stages the schedule text as-is. A window that does
// not parse is tolerated here; the advert simply never comes due until its
// schedule is fixed, and each pass logs it as a data-quality signal.
func (b *Bot) flowAwaitingAdSchedule(ctx context.Context, c tele.Context, _ string) error {
	expr := strings.TrimSpace(c.Text())
	if expr == "" {
		return respond(c, "Send a daily window like \"2-10 GMT+3\".",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	userID := c.Sender().ID
	content, err := b.sessions.Content(ctx, userID)
	if err != nil {
		return err
	}
	if err := b.sessions.SaveDraft(ctx, userID, flow.DraftAd{Content: content, Schedule: expr}); err != nil {
		return err
	}
	if err := b.sessions.Set(ctx, userID, flow.StateAwaitingAdChannels); err != nil {
		return err
	}

	channels, err := b.repo.Channels(ctx)
	if err != nil {
		return err
	}
	return respond(c, "Select the channels for the new advert:",
		b.channelPicker(ctx, channels, nil, "ch", "done_new_channels"))
}

func (b *Bot) flowAwaitingAdChannels(ctx context.Context, c tele.Context, _ string) error {
	// Channel selection happens through the buttons; text just re-renders it.
	draft, err := b.sessions.Draft(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	channels, err := b.repo.Channels(ctx)
	if err != nil {
		return err
	}
	return respond(c, "Use the buttons to pick channels, then press Done.",
		b.channelPicker(ctx, channels, draft.Channels, "ch", "done_new_channels"))
}

func (b *Bot) flowEditingChannels(ctx context.Context, c tele.Context, _ string) error {
	edit, err := b.sessions.Edit(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	channels, err := b.repo.Channels(ctx)
	if err != nil {
		return err
	}
	return respond(c, "Use the buttons to pick channels, then press Done.",
		b.channelPicker(ctx, channels, edit.Channels, "edit_ch", "done_edit_channels"))
}

func (b *Bot) flowEditingText(ctx context.Context, c tele.Context, adID string) error {
	content := strings.TrimSpace(c.Text())
	if content == "" {
		return respond(c, "The advert text cannot be empty. Send the new text.",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	err := b.repo.Update(ctx, adID, func(a *ads.Advert) { a.Content = content })
	return b.finishEdit(ctx, c, adID, err)
}

func (b *Bot) flowEditingSchedule(ctx context.Context, c tele.Context, adID string) error {
	expr := strings.TrimSpace(c.Text())
	if _, err := schedule.ParseWindow(expr); err != nil {
		return respond(c, "That schedule does not parse. Use \"<start>-<end> GMT<±offset>\", e.g. \"2-10 GMT+3\".",
			keyboard.InlineButtonsRows(backRow("main")))
	}

	err := b.repo.Update(ctx, adID, func(a *ads.Advert) { a.Schedule = expr })
	return b.finishEdit(ctx, c, adID, err)
}

// finishEdit closes an editing dialogue and re-renders the advert, handling
// the advert having been deleted mid-edit.
func (b *Bot) finishEdit(ctx context.Context, c tele.Context, adID string, updateErr error) error {
	if err := b.sessions.Clear(ctx, c.Sender().ID); err != nil {
		return err
	}
	if errors.Is(updateErr, ads.ErrNotFound) {
		return respond(c, "That advert no longer exists.",
			keyboard.InlineButtonsRows(backRow("adverts")))
	}
	if updateErr != nil {
		return updateErr
	}
	ad, err := b.repo.Find(ctx, adID)
	if err != nil {
		return err
	}
	return b.sendAdDetail(ctx, c, ad)
}
