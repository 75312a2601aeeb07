package schedule

import (
	"testing"
	"time"

	"github.com/m3rciful/teleads/internal/ads"
)

func TestParseWindow(t *testing.T) {
	cases := []struct {
		expr    string
		want    Window
		wantErr bool
	}{
		{"2-10 GMT+3", Window{Start: 2, End: 10, Offset: 3}, false},
		{"0-23 GMT+0", Window{Start: 0, End: 23, Offset: 0}, false},
		{"0-24 GMT+0", Window{}, true},
		{"22-23 GMT-5", Window{Start: 22, End: 23, Offset: -5}, false},
		{"  8-12   GMT+2 ", Window{Start: 8, End: 12, Offset: 2}, false},
		{"2-10", Window{}, true},
		{"2 10 GMT+3", Window{}, true},
		{"a-10 GMT+3", Window{}, true},
		{"2-b GMT+3", Window{}, true},
		{"2-10 UTC+3", Window{}, true},
		{"2-10 GMT+x", Window{}, true},
		{"-1-10 GMT+3", Window{}, true},
		{"2-25 GMT+3", Window{}, true},
		{"", Window{}, true},
	}
	for _, tc := range cases {
		got, err := ParseWindow(tc.expr)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseWindow(%q): expected error, got %+v", tc.expr, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWindow(%q): unexpected error: %v", tc.expr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseWindow(%q) = %+v, want %+v", tc.expr, got, tc.want)
		}
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: 2, End: 10}
	for hour, want := range map[int]bool{1: false, 2: true, 9: true, 10: false, 23: false} {
		if got := w.Contains(hour); got != want {
			t.Errorf("Contains(%d) = %v, want %v", hour, got, want)
		}
	}

	inverted := Window{Start: 10, End: 2}
	for hour := 0; hour < 24; hour++ {
		if inverted.Contains(hour) {
			t.Errorf("inverted window matched hour %d", hour)
		}
	}
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestDue(t *testing.T) {
	ad := ads.Advert{ID: "a1", Schedule: "2-10 GMT+3", Active: true}
	none := time.Time{}

	due, err := Due(ad, at(t, "2026-05-01T05:00:00Z"), none, false)
	if err != nil || !due {
		t.Fatalf("in-window advert: due=%v err=%v", due, err)
	}

	due, err = Due(ad, at(t, "2026-05-01T12:00:00Z"), none, false)
	if err != nil || due {
		t.Fatalf("out-of-window advert: due=%v err=%v", due, err)
	}

	inactive := ad
	inactive.Active = false
	due, err = Due(inactive, at(t, "2026-05-01T05:00:00Z"), none, false)
	if err != nil || due {
		t.Fatalf("inactive advert: due=%v err=%v", due, err)
	}

	broken := ad
	broken.Schedule = "whenever"
	due, err = Due(broken, at(t, "2026-05-01T05:00:00Z"), none, false)
	if err == nil || due {
		t.Fatalf("broken schedule: due=%v err=%v", due, err)
	}
}

func TestDueSuppressedBySameDayMarker(t *testing.T) {
	ad := ads.Advert{ID: "a1", Schedule: "2-10 GMT+3", Active: true}
	now := at(t, "2026-05-01T08:00:00Z")

	// Posted earlier today inside the window: not due again.
	due, err := Due(ad, now, at(t, "2026-05-01T03:00:00Z"), true)
	if err != nil || due {
		t.Fatalf("same-day in-window marker: due=%v err=%v", due, err)
	}

	// Posted today but outside the window (stale toggle): still due.
	due, err = Due(ad, now, at(t, "2026-05-01T01:00:00Z"), true)
	if err != nil || !due {
		t.Fatalf("same-day out-of-window marker: due=%v err=%v", due, err)
	}

	// Posted yesterday inside the window: due again today.
	due, err = Due(ad, now, at(t, "2026-04-30T03:00:00Z"), true)
	if err != nil || !due {
		t.Fatalf("previous-day marker: due=%v err=%v", due, err)
	}
}

func TestFormatWindow(t *testing.T) {
	if got := FormatWindow("2-10 GMT+3"); got != "02:00–10:00" {
		t.Errorf("FormatWindow = %q", got)
	}
	if got := FormatWindow("garbage"); got != "garbage" {
		t.Errorf("FormatWindow passthrough = %q", got)
	}
}
