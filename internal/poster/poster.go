// Package poster delivers advert content to Telegram channels one channel at
// a time, classifying failures so that a broken channel never blocks the
// rest of the run.
package poster

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/teleads/core/logger"
)

const component = "poster"

// Options tunes a Poster.
type Options struct {
	// SendCooldown paces consecutive sends. Zero or negative disables pacing.
	SendCooldown time.Duration
	// FloodMargin is added on top of the server-advised flood wait.
	FloodMargin time.Duration
}

// Poster sends adverts through a primary client with an optional fallback
// used when the primary lacks posting rights.
type Poster struct {
	primary  Client
	fallback Client
	limiter  *rate.Limiter
	margin   time.Duration

	// sleep is swapped in tests to avoid real flood waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Poster. fallback may be nil.
func New(primary, fallback Client, opts Options) *Poster {
	limit := rate.Inf
	if opts.SendCooldown > 0 {
		limit = rate.Every(opts.SendCooldown)
	}
	return &Poster{
		primary:  primary,
		fallback: fallback,
		limiter:  rate.NewLimiter(limit, 1),
		margin:   opts.FloodMargin,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Deliver posts content to a single channel and reports the outcome. It never
// returns an error: every failure mode is folded into the Result so callers
// can keep iterating over the remaining channels.
func (p *Poster) Deliver(ctx context.Context, channel, content string) Result {
	res := Result{Channel: channel}

	if err := p.limiter.Wait(ctx); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	if err := p.primary.CheckAccess(ctx, channel); err != nil {
		logger.Debug(ctx, component, "access_check_failed",
			slog.String("channel", channel), slog.String("error", err.Error()))
		switch jerr := p.primary.Join(ctx, channel); {
		case jerr == nil:
		case errors.Is(jerr, ErrJoinUnsupported):
			// Routine on the Bot API path, the send below gives the verdict.
			logger.Debug(ctx, component, "join_unsupported",
				slog.String("channel", channel), slog.String("hint", jerr.Error()))
		default:
			logger.Warn(ctx, component, "join_failed",
				slog.String("channel", channel), slog.String("error", jerr.Error()))
		}
	}

	err := p.primary.Send(ctx, channel, content)
	if err == nil {
		res.Status = StatusDelivered
		return res
	}

	kind, wait := classify(err)
	switch kind {
	case kindFlood:
		// Honor the advised wait so the rest of the batch is not throttled
		// too, but do not retry this channel within the pass.
		logger.Warn(ctx, component, "flood_wait",
			slog.String("channel", channel), slog.Duration("wait", wait+p.margin))
		if serr := p.sleep(ctx, wait+p.margin); serr != nil {
			res.Status = StatusFailed
			res.Err = serr
			return res
		}
		res.Status = StatusRateLimited
		res.Err = err
	case kindUnreachable:
		res.Status = StatusUnreachable
		res.Err = err
	case kindNoRights:
		res.Err = err
		if p.fallback == nil {
			res.Status = StatusPermissionDenied
			return res
		}
		logger.Info(ctx, component, "fallback_send", slog.String("channel", channel))
		if ferr := p.fallback.Send(ctx, channel, content); ferr != nil {
			res.Status = StatusPermissionDenied
			res.Err = ferr
			return res
		}
		res.Status = StatusDelivered
		res.FallbackUsed = true
		res.Err = nil
	default:
		res.Status = StatusFailed
		res.Err = err
	}
	return res
}
