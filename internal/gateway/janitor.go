// ABOUTME: Background pruning of revoked access token records that expired long ago
// ABOUTME: Runs on a ticker until its context is canceled

package gateway

import (
	"context"
	"log/slog"
	"time"
)

// tokenPruner is the part of store.TokenStore the janitor uses.
type tokenPruner interface {
	PruneAccessTokens(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// janitor deletes revoked registry records once they have been expired for longer than retention.
type janitor struct {
	store     tokenPruner
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func newJanitor(s tokenPruner, retention, interval time.Duration, logger *slog.Logger) *janitor {
	return &janitor{
		store:     s,
		retention: retention,
		interval:  interval,
		logger:    logger.With("component", "janitor"),
		now:       time.Now,
	}
}

// sweep prunes once and returns the number of records removed.
func (j *janitor) sweep(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.store.PruneAccessTokens(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("pruned revoked access tokens", "count", n, "expired_before", cutoff)
	}
	return n, nil
}

func (j *janitor) run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.sweep(ctx); err != nil && ctx.Err() == nil {
				j.logger.Warn("pruning access tokens failed", "error", err)
			}
		}
	}
}
