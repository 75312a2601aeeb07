package logger

import (
	"bytes"
	"strings"
	"testing"

	"log/slog"
)

func TestContextHandlerInjectsCorrelationFields(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := &contextHandler{base: slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})}

	ctx := WithRID(Background(), "42:7:9")
	ctx = WithUpdateMeta(ctx, 42, 9, 7)
	ctx = WithHandler(ctx, "callback.main")

	log := slog.New(handler).With("component", "tg")
	LogEvent(ctx, log, slog.LevelInfo, "test.event", slog.String("status", "ok"))

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{
		`"component":"tg"`,
		`"event":"test.event"`,
		`"status":"ok"`,
		`"rid":"` + CompactRID("42:7:9") + `"`,
		`"update_id":42`,
		`"user_id":9`,
		`"chat_id":7`,
		`"handler":"callback.main"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
}

func TestSanitize(t *testing.T) {
	in := "hello\x00\x1bworld\nnext\tcol"
	got := Sanitize(in)
	if got != "helloworld\nnext\tcol" {
		t.Fatalf("Sanitize = %q", got)
	}

	if got := SanitizeLimit("abcdef", 3); got != "abc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("abc", 0); got != "" {
		t.Fatalf("SanitizeLimit zero = %q", got)
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("123:456:789"); got != "3f.co.lx" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %q", got)
	}
	if got := CompactRID(""); got != "" {
		t.Fatalf("CompactRID empty = %q", got)
	}
}

func TestBuildRID(t *testing.T) {
	if got := BuildRID(1, 2, 3); got != "1:2:3" {
		t.Fatalf("BuildRID = %q", got)
	}
}
