package bot

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/teleads/core/config"
	"github.com/m3rciful/teleads/core/storage"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/flow"
)

const testAdmin = int64(7)

// fakeContext implements the slice of tele.Context the handlers touch. A
// call to anything else panics through the embedded nil interface, which is
// the signal that a handler grew a new dependency.
type fakeContext struct {
	tele.Context
	sender *tele.User
	text   string
	cb     *tele.Callback
	kv     map[string]any
	sent   []string
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{sender: &tele.User{ID: userID}, kv: map[string]any{}}
}

func (c *fakeContext) Update() tele.Update      { return tele.Update{} }
func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Chat() *tele.Chat         { return nil }
func (c *fakeContext) Text() string             { return c.text }
func (c *fakeContext) Callback() *tele.Callback { return c.cb }

func (c *fakeContext) Get(key string) any      { return c.kv[key] }
func (c *fakeContext) Set(key string, val any) { c.kv[key] = val }

func (c *fakeContext) Send(what any, _ ...any) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	return nil
}

func (c *fakeContext) EditOrSend(what any, _ ...any) error {
	return c.Send(what)
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, input string) (string, error) { return input, nil }
func (fakeResolver) Title(_ context.Context, channel string) string          { return channel }

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	repo := ads.NewRepository(storage.NewMemory())
	sessions := flow.NewSessions(storage.NewMemory())
	b := New(&coreconfig.Config{}, repo, sessions)
	b.Bind(nil, fakeResolver{})
	return b
}

// tap simulates a callback button press. data is the raw callback payload in
// the "<unique>|<payload>" wire form.
func tap(t *testing.T, h tele.HandlerFunc, userID int64, data string) *fakeContext {
	t.Helper()
	c := newFakeContext(userID)
	c.cb = &tele.Callback{Data: data}
	if err := h(c); err != nil {
		t.Fatalf("callback %q: %v", data, err)
	}
	return c
}

// say simulates a free-text message routed through the conversation router.
func say(t *testing.T, r *flow.Router, userID int64, text string) *fakeContext {
	t.Helper()
	c := newFakeContext(userID)
	c.text = text
	if !r.InProgress(newFakeContext(userID)) {
		t.Fatalf("no dialogue in progress before %q", text)
	}
	if err := r.Dispatch(c); err != nil {
		t.Fatalf("dispatch %q: %v", text, err)
	}
	return c
}

func TestNewAdvertDialogue(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()
	for _, ch := range []string{"@alpha", "@beta", "@gamma"} {
		if _, err := b.repo.AddChannel(ctx, ch); err != nil {
			t.Fatalf("add channel %s: %v", ch, err)
		}
	}
	r := b.Flows()

	tap(t, b.cbNewAd, testAdmin, "new_ad")
	say(t, r, testAdmin, "Summer sale, 20% off everything")
	say(t, r, testAdmin, "2-10 GMT+3")
	tap(t, b.cbToggleDraftChannel, testAdmin, "ch|0")
	tap(t, b.cbToggleDraftChannel, testAdmin, "ch|1")
	tap(t, b.cbFinishNewAd, testAdmin, "done_new_channels")

	adverts, err := b.repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(adverts) != 1 {
		t.Fatalf("adverts = %d, want exactly 1", len(adverts))
	}
	ad := adverts[0]
	if ad.Active {
		t.Fatalf("new advert must start paused")
	}
	if ad.Content != "Summer sale, 20% off everything" || ad.Schedule != "2-10 GMT+3" {
		t.Fatalf("unexpected advert: %+v", ad)
	}
	if want := []string{"@alpha", "@beta"}; !reflect.DeepEqual(ad.Channels, want) {
		t.Fatalf("channels = %v, want %v", ad.Channels, want)
	}
	if r.InProgress(newFakeContext(testAdmin)) {
		t.Fatalf("dialogue still open after confirmation")
	}
}

func TestNewAdvertDialogueTogglesOff(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()
	if _, err := b.repo.AddChannel(ctx, "@alpha"); err != nil {
		t.Fatalf("add channel: %v", err)
	}
	r := b.Flows()

	tap(t, b.cbNewAd, testAdmin, "new_ad")
	say(t, r, testAdmin, "text")
	say(t, r, testAdmin, "2-10 GMT+3")
	// Second tap on the same channel deselects it.
	tap(t, b.cbToggleDraftChannel, testAdmin, "ch|0")
	tap(t, b.cbToggleDraftChannel, testAdmin, "ch|0")
	tap(t, b.cbFinishNewAd, testAdmin, "done_new_channels")

	adverts, err := b.repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(adverts) != 1 || len(adverts[0].Channels) != 0 {
		t.Fatalf("unexpected adverts: %+v", adverts)
	}
}

func TestEditTextDialogueDispatchesByPrefix(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()
	ad, err := b.repo.Create(ctx, "old text", "2-10 GMT+3", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r := b.Flows()

	tap(t, b.cbEditContent, testAdmin, "edit_content|"+ad.ID)
	say(t, r, testAdmin, "new text")

	got, err := b.repo.Find(ctx, ad.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Content != "new text" {
		t.Fatalf("content = %q, want %q", got.Content, "new text")
	}
	if r.InProgress(newFakeContext(testAdmin)) {
		t.Fatalf("dialogue still open after the edit")
	}
}

func TestEditScheduleDialogueRejectsBadWindow(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()
	ad, err := b.repo.Create(ctx, "text", "2-10 GMT+3", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r := b.Flows()

	tap(t, b.cbEditSchedule, testAdmin, "edit_schedule|"+ad.ID)
	say(t, r, testAdmin, "whenever")

	got, err := b.repo.Find(ctx, ad.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Schedule != "2-10 GMT+3" {
		t.Fatalf("schedule changed to %q on invalid input", got.Schedule)
	}
	// The dialogue stays open for a corrected attempt.
	if !r.InProgress(newFakeContext(testAdmin)) {
		t.Fatalf("dialogue closed after rejected input")
	}
	say(t, r, testAdmin, "5-12 GMT+0")
	got, err = b.repo.Find(ctx, ad.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Schedule != "5-12 GMT+0" {
		t.Fatalf("schedule = %q, want the corrected window", got.Schedule)
	}
}

func TestMainMenuAbortsDialogue(t *testing.T) {
	b := newTestBot(t)
	r := b.Flows()

	tap(t, b.cbNewAd, testAdmin, "new_ad")
	if !r.InProgress(newFakeContext(testAdmin)) {
		t.Fatalf("dialogue did not open")
	}
	tap(t, b.cbMainMenu, testAdmin, "main")
	if r.InProgress(newFakeContext(testAdmin)) {
		t.Fatalf("back to the main menu must abort the dialogue")
	}
}

func TestDispatchClearsUnknownState(t *testing.T) {
	b := newTestBot(t)
	r := b.Flows()
	ctx := context.Background()

	if err := b.sessions.Set(ctx, testAdmin, "awaiting_moon_phase"); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if r.InProgress(newFakeContext(testAdmin)) {
		t.Fatalf("unknown state reported as in progress")
	}
	c := newFakeContext(testAdmin)
	c.text = "hello"
	if err := r.Dispatch(c); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	state, err := b.sessions.State(ctx, testAdmin)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state != "" {
		t.Fatalf("state = %q, want cleared", state)
	}
}
