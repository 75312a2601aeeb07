package ads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/teleads/core/logger"
	"github.com/m3rciful/teleads/core/storage"
)

// casRetries bounds the optimistic-write retry loop for collection updates.
const casRetries = 5

// Repository reads and writes advertisement and channel records.
type Repository struct {
	store storage.Store
}

// NewRepository constructs a Repository over the given store.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// List returns the current advert collection snapshot in stored order.
// A missing or unreadable record yields an empty collection.
func (r *Repository) List(ctx context.Context) ([]Advert, error) {
	raw, err := r.store.Get(ctx, keyAdverts)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load adverts: %w", err)
	}
	var adverts []Advert
	if err := json.Unmarshal([]byte(raw), &adverts); err != nil {
		logger.Warn(ctx, "ads", "adverts.decode",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return nil, nil
	}
	return adverts, nil
}

// Find returns the advert with the given id, or ErrNotFound.
func (r *Repository) Find(ctx context.Context, id string) (Advert, error) {
	adverts, err := r.List(ctx)
	if err != nil {
		return Advert{}, err
	}
	for _, ad := range adverts {
		if ad.ID == id {
			return ad, nil
		}
	}
	return Advert{}, ErrNotFound
}

// Create appends a new inactive advert built from staged data and returns it.
func (r *Repository) Create(ctx context.Context, content, schedule string, channels []string) (Advert, error) {
	ad := Advert{
		ID:       uuid.NewString(),
		Content:  content,
		Schedule: schedule,
		Channels: channels,
		Active:   false,
	}
	err := r.mutateAdverts(ctx, func(adverts []Advert) ([]Advert, error) {
		return append(adverts, ad), nil
	})
	if err != nil {
		return Advert{}, err
	}
	return ad, nil
}

// Update applies mutate to the advert with the given id.
func (r *Repository) Update(ctx context.Context, id string, mutate func(*Advert)) error {
	return r.mutateAdverts(ctx, func(adverts []Advert) ([]Advert, error) {
		for i := range adverts {
			if adverts[i].ID == id {
				mutate(&adverts[i])
				return adverts, nil
			}
		}
		return nil, ErrNotFound
	})
}

// Delete removes the advert and its last-posted marker.
func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.mutateAdverts(ctx, func(adverts []Advert) ([]Advert, error) {
		out := adverts[:0]
		for _, ad := range adverts {
			if ad.ID != id {
				out = append(out, ad)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, keyLastPostedPrefix+id)
}

// mutateAdverts runs a versioned read-modify-write over the whole collection,
// retrying a bounded number of times on concurrent modification.
func (r *Repository) mutateAdverts(ctx context.Context, mutate func([]Advert) ([]Advert, error)) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		raw, version, err := r.store.GetVersioned(ctx, keyAdverts)
		if err != nil {
			return fmt.Errorf("load adverts: %w", err)
		}
		var adverts []Advert
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &adverts); err != nil {
				adverts = nil
			}
		}

		adverts, err = mutate(adverts)
		if err != nil {
			return err
		}

		data, err := json.Marshal(adverts)
		if err != nil {
			return fmt.Errorf("encode adverts: %w", err)
		}
		err = r.store.SetVersioned(ctx, keyAdverts, string(data), version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return fmt.Errorf("save adverts: %w", err)
		}
	}
	return fmt.Errorf("save adverts: %w", storage.ErrVersionConflict)
}

// Channels returns the global channel list in stored order.
func (r *Repository) Channels(ctx context.Context) ([]string, error) {
	raw, err := r.store.Get(ctx, keyChannels)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	var channels []string
	if err := json.Unmarshal([]byte(raw), &channels); err != nil {
		return nil, nil
	}
	return channels, nil
}

// AddChannel appends ch to the global list if absent. It reports whether the
// channel was actually added.
func (r *Repository) AddChannel(ctx context.Context, ch string) (bool, error) {
	added := false
	for attempt := 0; attempt < casRetries; attempt++ {
		raw, version, err := r.store.GetVersioned(ctx, keyChannels)
		if err != nil {
			return false, fmt.Errorf("load channels: %w", err)
		}
		var channels []string
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &channels); err != nil {
				channels = nil
			}
		}

		added = true
		for _, existing := range channels {
			if existing == ch {
				return false, nil
			}
		}
		channels = append(channels, ch)

		data, err := json.Marshal(channels)
		if err != nil {
			return false, fmt.Errorf("encode channels: %w", err)
		}
		err = r.store.SetVersioned(ctx, keyChannels, string(data), version)
		if err == nil {
			return added, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return false, fmt.Errorf("save channels: %w", err)
		}
	}
	return false, fmt.Errorf("save channels: %w", storage.ErrVersionConflict)
}

// LastPosted returns the last successful posting-pass timestamp for the advert.
func (r *Repository) LastPosted(ctx context.Context, id string) (time.Time, bool, error) {
	raw, err := r.store.Get(ctx, keyLastPostedPrefix+id)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load last-posted %s: %w", id, err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SetLastPosted records the posting-pass timestamp for the advert.
func (r *Repository) SetLastPosted(ctx context.Context, id string, t time.Time) error {
	if err := r.store.Set(ctx, keyLastPostedPrefix+id, t.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save last-posted %s: %w", id, err)
	}
	return nil
}
