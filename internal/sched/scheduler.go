// Package sched runs the periodic posting loop: every tick it walks the
// advert list, decides which adverts are due and hands them to the poster,
// then records a posting marker so the same day never double-posts.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/teleads/core/logger"
	"github.com/m3rciful/teleads/internal/ads"
	"github.com/m3rciful/teleads/internal/poster"
	"github.com/m3rciful/teleads/internal/schedule"
)

const component = "sched"

// Deliverer posts one advert to one channel. Satisfied by *poster.Poster.
type Deliverer interface {
	Deliver(ctx context.Context, channel, content string) poster.Result
}

// Report summarizes a single scheduler pass.
type Report struct {
	Examined    int
	Due         int
	Delivered   int
	Failed      int
	ParseErrors int
}

// Scheduler owns the posting loop. Passes are serialized: a manual run that
// overlaps the periodic tick simply waits its turn, and the posting marker
// keeps the second pass from re-sending anything.
type Scheduler struct {
	repo *ads.Repository
	post Deliverer
	loc  *time.Location

	mu   sync.Mutex
	cron *cron.Cron

	// now is swapped in tests.
	now func() time.Time
}

// New builds a Scheduler evaluating schedules in loc.
func New(repo *ads.Repository, post Deliverer, loc *time.Location) *Scheduler {
	return &Scheduler{
		repo: repo,
		post: post,
		loc:  loc,
		now:  time.Now,
	}
}

// Start launches the periodic loop with the given interval. The loop stops
// when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}
	c := cron.New(cron.WithLocation(s.loc))
	_, err := c.AddFunc("@every "+interval.String(), func() {
		if _, rerr := s.RunOnce(ctx); rerr != nil {
			logger.Error(ctx, component, "pass_failed", slog.String("error", rerr.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule posting loop: %w", err)
	}
	s.cron = c
	c.Start()
	logger.Info(ctx, component, "loop_started", slog.Duration("interval", interval))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the periodic loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	logger.Info(context.Background(), component, "loop_stopped")
}

// RunOnce performs one full pass over all adverts. Safe to call from the
// periodic loop and from the admin menu at the same time.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rep Report
	now := s.now().In(s.loc)

	adverts, err := s.repo.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list adverts: %w", err)
	}

	for _, ad := range adverts {
		rep.Examined++

		last, hasLast, err := s.repo.LastPosted(ctx, ad.ID)
		if err != nil {
			logger.Warn(ctx, component, "marker_read_failed",
				slog.String("ad_id", ad.ID), slog.String("error", err.Error()))
			continue
		}

		due, err := schedule.Due(ad, now, last, hasLast)
		if err != nil {
			rep.ParseErrors++
			logger.Warn(ctx, component, "bad_schedule",
				slog.String("ad_id", ad.ID), slog.String("schedule", ad.Schedule),
				slog.String("error", err.Error()))
			continue
		}
		if !due {
			continue
		}
		rep.Due++

		results, err := s.deliverAll(ctx, ad)
		if err != nil {
			logger.Error(ctx, component, "targets_failed",
				slog.String("ad_id", ad.ID), slog.String("error", err.Error()))
			continue
		}
		for _, res := range results {
			if res.OK() {
				rep.Delivered++
			} else {
				rep.Failed++
			}
		}

		// The marker is written once per advert after the channel fan-out,
		// whatever the per-channel outcomes were.
		if err := s.repo.SetLastPosted(ctx, ad.ID, now); err != nil {
			logger.Error(ctx, component, "marker_write_failed",
				slog.String("ad_id", ad.ID), slog.String("error", err.Error()))
		}
	}

	logger.Info(ctx, component, "pass_done",
		slog.Int("examined", rep.Examined), slog.Int("due", rep.Due),
		slog.Int("delivered", rep.Delivered), slog.Int("failed", rep.Failed))
	return rep, nil
}

// InstantPost sends the advert to a single channel right now, bypassing both
// the window check and the posting marker.
func (s *Scheduler) InstantPost(ctx context.Context, adID, channel string) (poster.Result, error) {
	ad, err := s.repo.Find(ctx, adID)
	if err != nil {
		return poster.Result{}, err
	}
	res := s.post.Deliver(ctx, channel, ad.Content)
	s.logResult(ctx, ad.ID, res)
	return res, nil
}

// InstantPostAll sends the advert to every channel it targets right now,
// bypassing the window check and the posting marker.
func (s *Scheduler) InstantPostAll(ctx context.Context, adID string) ([]poster.Result, error) {
	ad, err := s.repo.Find(ctx, adID)
	if err != nil {
		return nil, err
	}
	return s.deliverAll(ctx, ad)
}

// Targets resolves the advert's effective destination set: its own channel
// subset, or the global channel list when the subset is empty.
func (s *Scheduler) Targets(ctx context.Context, ad ads.Advert) ([]string, error) {
	if len(ad.Channels) > 0 {
		return ad.Channels, nil
	}
	return s.repo.Channels(ctx)
}

func (s *Scheduler) deliverAll(ctx context.Context, ad ads.Advert) ([]poster.Result, error) {
	channels, err := s.Targets(ctx, ad)
	if err != nil {
		return nil, err
	}
	results := make([]poster.Result, 0, len(channels))
	for _, ch := range channels {
		res := s.post.Deliver(ctx, ch, ad.Content)
		s.logResult(ctx, ad.ID, res)
		results = append(results, res)
	}
	return results, nil
}

func (s *Scheduler) logResult(ctx context.Context, adID string, res poster.Result) {
	attrs := []slog.Attr{
		slog.String("ad_id", adID),
		slog.String("channel", res.Channel),
		slog.String("status", res.Status.String()),
		slog.Bool("fallback", res.FallbackUsed),
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
		logger.Warn(ctx, component, "delivery_failed", attrs...)
		return
	}
	logger.Info(ctx, component, "delivered", attrs...)
}
