package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teleads/core/logger"
)

type fakeClient struct {
	accessErr error
	joinErr   error
	joinCalls int
	sendErrs  []error
	sends     []string
}

func (f *fakeClient) CheckAccess(context.Context, string) error { return f.accessErr }

func (f *fakeClient) Join(context.Context, string) error {
	f.joinCalls++
	return f.joinErr
}

// logSink captures records so tests can assert at which level an event was
// emitted.
type logSink struct {
	records []slog.Record
}

func (s *logSink) Enabled(context.Context, slog.Level) bool { return true }

func (s *logSink) Handle(_ context.Context, r slog.Record) error {
	s.records = append(s.records, r)
	return nil
}

func (s *logSink) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *logSink) WithGroup(string) slog.Handler      { return s }

func (s *logSink) level(event string) (slog.Level, bool) {
	for _, r := range s.records {
		found := false
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "event" && a.Value.String() == event {
				found = true
				return false
			}
			return true
		})
		if found {
			return r.Level, true
		}
	}
	return 0, false
}

func (f *fakeClient) Send(_ context.Context, channel, _ string) error {
	f.sends = append(f.sends, channel)
	if len(f.sendErrs) == 0 {
		return nil
	}
	err := f.sendErrs[0]
	f.sendErrs = f.sendErrs[1:]
	return err
}

func newTestPoster(primary, fallback Client) (*Poster, *[]time.Duration) {
	p := New(primary, fallback, Options{FloodMargin: 5 * time.Second})
	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, &slept
}

func TestDeliverSuccess(t *testing.T) {
	primary := &fakeClient{}
	p, _ := newTestPoster(primary, nil)

	res := p.Deliver(context.Background(), "-1001", "hello")
	if !res.OK() || res.FallbackUsed || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if primary.joinCalls != 0 {
		t.Fatalf("join attempted on accessible channel")
	}
}

func TestDeliverJoinsAfterAccessFailure(t *testing.T) {
	primary := &fakeClient{accessErr: errors.New("CHANNEL_PRIVATE")}
	p, _ := newTestPoster(primary, nil)

	res := p.Deliver(context.Background(), "-1001", "hello")
	if !res.OK() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if primary.joinCalls != 1 {
		t.Fatalf("expected join attempt, got %d", primary.joinCalls)
	}
}

func TestDeliverJoinUnsupportedStaysQuiet(t *testing.T) {
	primary := &fakeClient{
		accessErr: errors.New("CHANNEL_PRIVATE"),
		joinErr:   fmt.Errorf("add the bot as an administrator: %w", ErrJoinUnsupported),
	}
	p, _ := newTestPoster(primary, nil)

	sink := &logSink{}
	ctx := logger.WithLogger(context.Background(), slog.New(sink))

	res := p.Deliver(ctx, "-1001", "hello")
	if !res.OK() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if lvl, ok := sink.level("join_unsupported"); !ok || lvl != slog.LevelDebug {
		t.Fatalf("join_unsupported level = %v found = %v, want debug", lvl, ok)
	}
	if _, ok := sink.level("join_failed"); ok {
		t.Fatalf("join_failed logged for an account that cannot join")
	}
}

func TestDeliverJoinFailureWarns(t *testing.T) {
	primary := &fakeClient{
		accessErr: errors.New("CHANNEL_PRIVATE"),
		joinErr:   errors.New("FLOOD_WAIT_30"),
	}
	p, _ := newTestPoster(primary, nil)

	sink := &logSink{}
	ctx := logger.WithLogger(context.Background(), slog.New(sink))

	if res := p.Deliver(ctx, "-1001", "hello"); !res.OK() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if lvl, ok := sink.level("join_failed"); !ok || lvl != slog.LevelWarn {
		t.Fatalf("join_failed level = %v found = %v, want warn", lvl, ok)
	}
}

func TestDeliverUnreachable(t *testing.T) {
	apiErr := &tele.Error{Code: 403, Description: "Forbidden: bot was kicked from the channel chat"}
	primary := &fakeClient{sendErrs: []error{apiErr}}
	p, _ := newTestPoster(primary, nil)

	res := p.Deliver(context.Background(), "-1001", "hello")
	if res.Status != StatusUnreachable {
		t.Fatalf("status = %v, want unreachable", res.Status)
	}
}

func TestDeliverFallbackOnMissingRights(t *testing.T) {
	apiErr := &tele.Error{Code: 400, Description: "Bad Request: need administrator rights in the channel chat"}
	primary := &fakeClient{sendErrs: []error{apiErr}}
	fallback := &fakeClient{}
	p, _ := newTestPoster(primary, fallback)

	res := p.Deliver(context.Background(), "-1001", "hello")
	if !res.OK() || !res.FallbackUsed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fallback.sends) != 1 {
		t.Fatalf("fallback sends = %d", len(fallback.sends))
	}
}

func TestDeliverPermissionDeniedWithoutFallback(t *testing.T) {
	apiErr := &tele.Error{Code: 400, Description: "Bad Request: not enough rights to send text messages to the chat"}
	primary := &fakeClient{sendErrs: []error{apiErr}}
	p, _ := newTestPoster(primary, nil)

	res := p.Deliver(context.Background(), "-1001", "hello")
	if res.Status != StatusPermissionDenied {
		t.Fatalf("status = %v, want permission_denied", res.Status)
	}
}

func TestDeliverFloodWaitsThenReports(t *testing.T) {
	// telebot.v4 keeps FloodError's inner *Error unexported, so the fixture
	// can only set RetryAfter; classify only reads that field anyway.
	flood := tele.FloodError{
		RetryAfter: 2,
	}
	primary := &fakeClient{sendErrs: []error{flood}}
	p, slept := newTestPoster(primary, nil)

	res := p.Deliver(context.Background(), "-1001", "hello")
	if res.Status != StatusRateLimited {
		t.Fatalf("status = %v, want rate_limited", res.Status)
	}
	if len(*slept) != 1 || (*slept)[0] != 7*time.Second {
		t.Fatalf("slept = %v, want one 7s wait", *slept)
	}
	// No in-pass retry of the throttled channel.
	if len(primary.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(primary.sends))
	}
}

func TestDeliverIsolatesFailures(t *testing.T) {
	apiErr := &tele.Error{Code: 403, Description: "Forbidden: the channel chat was deactivated"}
	primary := &fakeClient{sendErrs: []error{nil, apiErr, nil}}
	p, _ := newTestPoster(primary, nil)

	var results []Result
	for _, ch := range []string{"-1001", "-1002", "-1003"} {
		results = append(results, p.Deliver(context.Background(), ch, "hello"))
	}
	if !results[0].OK() || results[1].OK() || !results[2].OK() {
		t.Fatalf("unexpected outcomes: %+v", results)
	}
}
