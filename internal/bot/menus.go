package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/core/telegram/keyboard"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/schedule"
)

const previewLen = 40

// respond edits the message behind a callback tap, or sends a new one for
// plain messages.
func respond(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil {
		return c.EditOrSend(text, markup)
	}
	return c.Send(text, markup)
}

func backRow(unique string) []keyboard.InlineBtn {
	return []keyboard.InlineBtn{{Text: "◀️ Back", Unique: unique}}
}

func (b *Bot) sendMainMenu(c tele.Context) error {
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "📋 Channels", Unique: "channels"},
		{Text: "📢 Adverts", Unique: "adverts"},
		{Text: "🚀 Instant post", Unique: "instant_select_ad"},
		{Text: "▶️ Run scheduler now", Unique: "run_scheduler_once"},
	})
	return respond(c, "Advert scheduler. What do you want to do?", markup)
}

func (b *Bot) sendChannelsMenu(ctx context.Context, c tele.Context, note string) error {
	channels, err := b.repo.Channels(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	if note != "" {
		sb.WriteString(note)
		sb.WriteString("\n\n")
	}
	if len(channels) == 0 {
		sb.WriteString("No channels yet.")
	} else {
		sb.WriteString("Channels:\n")
		for _, ch := range channels {
			fmt.Fprintf(&sb, "• %s\n", b.resolver.Title(ctx, ch))
		}
	}

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "➕ Add channel", Unique: "add_channel"}},
		backRow("main"),
	)
	return respond(c, sb.String(), markup)
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "…"
}

func statusMarker(active bool) string {
	if active {
		return "✅"
	}
	return "⏸"
}

func (b *Bot) sendAdvertsMenu(ctx context.Context, c tele.Context) error {
	adverts, err := b.repo.List(ctx)
	if err != nil {
		return err
	}

	rows := make([][]keyboard.InlineBtn, 0, len(adverts)+2)
	for _, ad := range adverts {
		label := fmt.Sprintf("%s %s | %s", statusMarker(ad.Active), schedule.FormatWindow(ad.Schedule), preview(ad.Content))
		rows = append(rows, []keyboard.InlineBtn{{Text: label, Unique: "edit_ad", Data: ad.ID}})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "➕ New advert", Unique: "new_ad"}},
		backRow("main"),
	)

	text := "Adverts:"
	if len(adverts) == 0 {
		text = "No adverts yet."
	}
	return respond(c, text, keyboard.InlineButtonsRows(rows...))
}

func (b *Bot) sendAdDetail(ctx context.Context, c tele.Context, ad ads.Advert) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n\n", statusMarker(ad.Active), schedule.FormatWindow(ad.Schedule))
	sb.WriteString(ad.Content)
	sb.WriteString("\n\nChannels:\n")
	if len(ad.Channels) == 0 {
		sb.WriteString("• none\n")
	}
	for _, ch := range ad.Channels {
		fmt.Fprintf(&sb, "• %s\n", b.resolver.Title(ctx, ch))
	}

	toggleLabel := "▶️ Activate"
	if ad.Active {
		toggleLabel = "⏸ Pause"
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: toggleLabel, Unique: "toggle_ad", Data: ad.ID}},
		[]keyboard.InlineBtn{
			{Text: "✏️ Text", Unique: "edit_content", Data: ad.ID},
			{Text: "🕒 Schedule", Unique: "edit_schedule", Data: ad.ID},
		},
		[]keyboard.InlineBtn{{Text: "📋 Channels", Unique: "edit_channels", Data: ad.ID}},
		[]keyboard.InlineBtn{
			{Text: "🚀 Post now", Unique: "instant_ad", Data: ad.ID},
			{Text: "🗑 Delete", Unique: "delete_ad", Data: ad.ID},
		},
		backRow("adverts"),
	)
	return respond(c, sb.String(), markup)
}

// channelPicker renders a toggleable channel list. unique is the per-channel
// callback key carrying the channel index, done the confirm key.
func (b *Bot) channelPicker(ctx context.Context, channels, selected []string, unique, done string) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(channels)+2)
	for i, ch := range channels {
		mark := "☐"
		for _, sel := range selected {
			if sel == ch {
				mark = "☑️"
				break
			}
		}
		label := fmt.Sprintf("%s %s", mark, b.resolver.Title(ctx, ch))
		rows = append(rows, []keyboard.InlineBtn{{Text: label, Unique: unique, Data: strconv.Itoa(i)}})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "✅ Done", Unique: done}},
		backRow("main"),
	)
	return keyboard.InlineButtonsRows(rows...)
}

func (b *Bot) sendInstantAdList(ctx context.Context, c tele.Context) error {
	adverts, err := b.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(adverts) == 0 {
		return respond(c, "No adverts to post.", keyboard.InlineButtonsRows(backRow("main")))
	}

	rows := make([][]keyboard.InlineBtn, 0, len(adverts)+1)
	for _, ad := range adverts {
		rows = append(rows, []keyboard.InlineBtn{{Text: preview(ad.Content), Unique: "instant_ad", Data: ad.ID}})
	}
	rows = append(rows, backRow("main"))
	return respond(c, "Pick an advert to post right now:", keyboard.InlineButtonsRows(rows...))
}
