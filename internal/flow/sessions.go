// Package flow keeps per-user conversation state for the multi-step
// authoring and editing dialogues. State survives restarts because it lives
// in the same store as the adverts themselves.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/m3rciful/teleads/core/storage"
)

// Conversation states. Editing states for a specific advert carry the advert
// ID after the colon, e.g. "editing_text:4f2a…".
const (
	StateAwaitingChannel    = "awaiting_channel"
	StateAwaitingAdContent  = "awaiting_ad_content"
	StateAwaitingAdSchedule = "awaiting_ad_schedule"
	StateAwaitingAdChannels = "awaiting_ad_channels"
	StateEditingChannels    = "editing_channels"

	PrefixEditingText     = "editing_text:"
	PrefixEditingSchedule = "editing_schedule:"
)

// DraftAd is a new advert under construction.
type DraftAd struct {
	Content  string   `json:"content"`
	Schedule string   `json:"schedule"`
	Channels []string `json:"channels"`
}

// EditDraft tracks an in-progress channel re-selection for an existing advert.
type EditDraft struct {
	AdID     string   `json:"ad_id"`
	Channels []string `json:"channels"`
}

// Sessions reads and writes conversation state keyed by Telegram user ID.
type Sessions struct {
	store storage.Store
}

func NewSessions(store storage.Store) *Sessions {
	return &Sessions{store: store}
}

func stateKey(userID int64) string   { return "state:" + strconv.FormatInt(userID, 10) }
func contentKey(userID int64) string { return "temp_ad_content:" + strconv.FormatInt(userID, 10) }
func draftKey(userID int64) string   { return "temp_ad:" + strconv.FormatInt(userID, 10) }
func editKey(userID int64) string    { return "temp_edit_ad:" + strconv.FormatInt(userID, 10) }

// State returns the user's current conversation state, or "" when idle.
func (s *Sessions) State(ctx context.Context, userID int64) (string, error) {
	v, err := s.store.Get(ctx, stateKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Enter starts a fresh dialogue in the given state, discarding any staged
// data a previously abandoned dialogue may have left behind.
func (s *Sessions) Enter(ctx context.Context, userID int64, state string) error {
	if err := s.clearDrafts(ctx, userID); err != nil {
		return err
	}
	return s.store.Set(ctx, stateKey(userID), state)
}

// Set transitions within a dialogue, keeping staged data intact.
func (s *Sessions) Set(ctx context.Context, userID int64, state string) error {
	return s.store.Set(ctx, stateKey(userID), state)
}

// Clear ends the dialogue and removes all staged data for the user.
func (s *Sessions) Clear(ctx context.Context, userID int64) error {
	if err := s.store.Delete(ctx, stateKey(userID)); err != nil {
		return err
	}
	return s.clearDrafts(ctx, userID)
}

func (s *Sessions) clearDrafts(ctx context.Context, userID int64) error {
	for _, key := range []string{contentKey(userID), draftKey(userID), editKey(userID)} {
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// SaveContent stages the advert text entered in the first authoring step.
func (s *Sessions) SaveContent(ctx context.Context, userID int64, content string) error {
	return s.store.Set(ctx, contentKey(userID), content)
}

// Content returns the staged advert text.
func (s *Sessions) Content(ctx context.Context, userID int64) (string, error) {
	v, err := s.store.Get(ctx, contentKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("no staged advert text for user %d", userID)
	}
	return v, err
}

// SaveDraft stages the partially built advert.
func (s *Sessions) SaveDraft(ctx context.Context, userID int64, d DraftAd) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.store.Set(ctx, draftKey(userID), string(raw))
}

// Draft returns the staged advert.
func (s *Sessions) Draft(ctx context.Context, userID int64) (DraftAd, error) {
	var d DraftAd
	raw, err := s.store.Get(ctx, draftKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return d, fmt.Errorf("no staged advert for user %d", userID)
	}
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return d, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// SaveEdit stages an in-progress channel re-selection.
func (s *Sessions) SaveEdit(ctx context.Context, userID int64, d EditDraft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode edit draft: %w", err)
	}
	return s.store.Set(ctx, editKey(userID), string(raw))
}

// Edit returns the staged channel re-selection.
func (s *Sessions) Edit(ctx context.Context, userID int64) (EditDraft, error) {
	var d EditDraft
	raw, err := s.store.Get(ctx, editKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return d, fmt.Errorf("no staged edit for user %d", userID)
	}
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return d, fmt.Errorf("decode edit draft: %w", err)
	}
	return d, nil
}
