package telegram

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerLongpollDefaults(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "longpoll"})
	lp, ok := p.(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller = %T, want *tele.LongPoller", p)
	}
	if want := DefaultLongPollTimeoutSeconds * time.Second; lp.Timeout != want {
		t.Fatalf("timeout = %v, want %v", lp.Timeout, want)
	}
}

func TestBuildPollerLongpollExplicitTimeout(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "LONGPOLL", LongPollTimeoutSeconds: 45})
	lp, ok := p.(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller = %T, want *tele.LongPoller", p)
	}
	if lp.Timeout != 45*time.Second {
		t.Fatalf("timeout = %v, want 45s", lp.Timeout)
	}
}

func TestBuildPollerWebhook(t *testing.T) {
	p := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	})
	wh, ok := p.(*tele.Webhook)
	if !ok {
		t.Fatalf("poller = %T, want *tele.Webhook", p)
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q", wh.Listen)
	}
	if wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("public url = %q", wh.Endpoint.PublicURL)
	}
}
