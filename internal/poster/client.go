package poster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/internal/ads"
)

// ErrJoinUnsupported marks accounts that cannot enter channels on their own.
// Deliver treats it as a routine condition rather than a failure.
var ErrJoinUnsupported = errors.New("account cannot join channels itself")

// Client is the sending surface Deliver needs from a Telegram account.
type Client interface {
	// CheckAccess verifies the account can see the channel at all.
	CheckAccess(ctx context.Context, channel string) error
	// Join attempts to enter the channel after a failed access check.
	Join(ctx context.Context, channel string) error
	// Send posts the content to the channel.
	Send(ctx context.Context, channel string, content string) error
}

// chatRef satisfies tele.Recipient for a stored channel key, which is either
// a "-100…" chat ID or an "@username".
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

// TelebotClient adapts a *tele.Bot to the Client interface.
type TelebotClient struct {
	bot *tele.Bot
}

// NewTelebotClient wraps an initialized bot.
func NewTelebotClient(bot *tele.Bot) *TelebotClient {
	return &TelebotClient{bot: bot}
}

func (t *TelebotClient) CheckAccess(_ context.Context, channel string) error {
	_, err := t.bot.ChatMemberOf(chatRef(channel), t.bot.Me)
	return err
}

// Join is a no-op for Bot API accounts: bots cannot join channels on their
// own and must be added by an administrator. The subsequent send attempt
// produces the real verdict.
func (t *TelebotClient) Join(_ context.Context, channel string) error {
	return fmt.Errorf("bot %s must be added to %s as an administrator: %w",
		t.bot.Me.Username, channel, ErrJoinUnsupported)
}

func (t *TelebotClient) Send(_ context.Context, channel string, content string) error {
	_, err := t.bot.Send(chatRef(channel), content)
	return err
}

// Title resolves the channel's display name, falling back to the raw key.
func (t *TelebotClient) Title(_ context.Context, channel string) string {
	chat, err := t.bot.ChatByUsername(channel)
	if err != nil || chat.Title == "" {
		return channel
	}
	return chat.Title
}

// Resolve turns user input (a t.me link, @username or numeric ID) into the
// canonical store key for the channel.
func (t *TelebotClient) Resolve(_ context.Context, input string) (string, error) {
	key := strings.TrimSpace(input)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(key, prefix) {
			key = "@" + strings.TrimPrefix(key, prefix)
			break
		}
	}
	if key == "" {
		return "", fmt.Errorf("empty channel reference")
	}

	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return ads.NormalizeChannel(id), nil
	}

	if !strings.HasPrefix(key, "@") {
		key = "@" + key
	}
	chat, err := t.bot.ChatByUsername(key)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", key, err)
	}
	return ads.NormalizeChannel(chat.ID), nil
}
