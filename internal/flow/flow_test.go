package flow

import (
	"context"
	"testing"

	"github.com/m3rciful/teleads/core/storage"
)

func newSessions() *Sessions {
	return NewSessions(storage.NewMemory())
}

func TestSessionsStateLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSessions()

	state, err := s.State(ctx, 7)
	if err != nil || state != "" {
		t.Fatalf("idle user: state=%q err=%v", state, err)
	}

	if err := s.Enter(ctx, 7, StateAwaitingAdContent); err != nil {
		t.Fatalf("enter: %v", err)
	}
	state, _ = s.State(ctx, 7)
	if state != StateAwaitingAdContent {
		t.Fatalf("state = %q", state)
	}

	if err := s.Set(ctx, 7, StateAwaitingAdSchedule); err != nil {
		t.Fatalf("set: %v", err)
	}
	state, _ = s.State(ctx, 7)
	if state != StateAwaitingAdSchedule {
		t.Fatalf("state = %q", state)
	}

	if err := s.Clear(ctx, 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	state, _ = s.State(ctx, 7)
	if state != "" {
		t.Fatalf("state after clear = %q", state)
	}
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	s := newSessions()

	if err := s.Enter(ctx, 1, StateAwaitingChannel); err != nil {
		t.Fatalf("enter: %v", err)
	}
	state, _ := s.State(ctx, 2)
	if state != "" {
		t.Fatalf("user 2 leaked state %q", state)
	}
}

func TestDraftRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSessions()

	if err := s.SaveContent(ctx, 7, "big sale"); err != nil {
		t.Fatalf("save content: %v", err)
	}
	content, err := s.Content(ctx, 7)
	if err != nil || content != "big sale" {
		t.Fatalf("content=%q err=%v", content, err)
	}

	want := DraftAd{Content: "big sale", Schedule: "2-10 GMT+3", Channels: []string{"-1001"}}
	if err := s.SaveDraft(ctx, 7, want); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	got, err := s.Draft(ctx, 7)
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if got.Content != want.Content || got.Schedule != want.Schedule || len(got.Channels) != 1 {
		t.Fatalf("draft = %+v", got)
	}

	edit := EditDraft{AdID: "a1", Channels: []string{"-1001", "-1002"}}
	if err := s.SaveEdit(ctx, 7, edit); err != nil {
		t.Fatalf("save edit: %v", err)
	}
	gotEdit, err := s.Edit(ctx, 7)
	if err != nil || gotEdit.AdID != "a1" || len(gotEdit.Channels) != 2 {
		t.Fatalf("edit = %+v err=%v", gotEdit, err)
	}
}

func TestEnterDiscardsStaleDrafts(t *testing.T) {
	ctx := context.Background()
	s := newSessions()

	if err := s.Enter(ctx, 7, StateAwaitingAdContent); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := s.SaveContent(ctx, 7, "old text"); err != nil {
		t.Fatalf("save content: %v", err)
	}
	if err := s.SaveDraft(ctx, 7, DraftAd{Content: "old text"}); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	// Starting over must not resurrect the abandoned dialogue's data.
	if err := s.Enter(ctx, 7, StateAwaitingAdContent); err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	if _, err := s.Content(ctx, 7); err == nil {
		t.Fatal("stale content survived re-enter")
	}
	if _, err := s.Draft(ctx, 7); err == nil {
		t.Fatal("stale draft survived re-enter")
	}
}

func TestDraftMissing(t *testing.T) {
	ctx := context.Background()
	s := newSessions()
	if _, err := s.Content(ctx, 7); err == nil {
		t.Fatal("expected error for missing content")
	}
	if _, err := s.Draft(ctx, 7); err == nil {
		t.Fatal("expected error for missing draft")
	}
	if _, err := s.Edit(ctx, 7); err == nil {
		t.Fatal("expected error for missing edit draft")
	}
}
