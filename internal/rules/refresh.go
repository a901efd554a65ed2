package rules

import (
	"context"
	"time"

	"github.com/purelink/purelink/internal/utils"
)

// Updater is the fetch-and-reload path the Refresher schedules.
type Updater interface {
	Update(ctx context.Context) error
}

// Refresher periodically runs an Updater. After a failure it retries on a
// doubling delay, starting at Retry and capped at Interval.
type Refresher struct {
	Updater  Updater
	Interval time.Duration
	Retry    time.Duration

	// OnResult, when set, is called after every attempt.
	OnResult func(err error)
}

// Run blocks until ctx is cancelled. The first attempt happens immediately
// when runNow is set, otherwise after one Interval.
func (r *Refresher) Run(ctx context.Context, runNow bool) {
	log := utils.Logger("refresh")

	delay := r.Interval
	if runNow {
		delay = 0
	}
	backoff := r.Retry

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := r.Updater.Update(ctx)
		if r.OnResult != nil {
			r.OnResult(err)
		}

		if err == nil {
			log.Info().Msg("rules refreshed")
			backoff = r.Retry
			timer.Reset(r.Interval)
			continue
		}
		if ctx.Err() != nil {
			return
		}

		log.Warn().Err(err).Dur("retry_in", backoff).Msg("rules refresh failed")
		timer.Reset(backoff)
		backoff *= 2
		if backoff > r.Interval {
			backoff = r.Interval
		}
	}
}
