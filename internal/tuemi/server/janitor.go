package server

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/tuemi-io/tuemi/pkg/log"
)

// SessionPurger deletes expired sessions and reports how many were removed.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically removes expired login sessions.
type Janitor struct {
	purger   SessionPurger
	interval time.Duration
	clock    clock.WithTicker
}

func NewJanitor(purger SessionPurger, interval time.Duration, clk clock.WithTicker) *Janitor {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Janitor{purger: purger, interval: interval, clock: clk}
}

func (j *Janitor) Start(ctx context.Context) error {
	logger := log.WithName("janitor")
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			n, err := j.purger.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Error(err, "Failed to purge expired sessions")
				continue
			}
			if n > 0 {
				logger.Info("Purged expired sessions", "count", n)
			}
		}
	}
}
