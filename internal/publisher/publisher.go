// Package publisher flips scheduled chapter events to published once their
// time has come.
package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaseKey = "publisher:lease"

// Publisher runs one conditional update per tick. The update is idempotent,
// so replicas may overlap; the Redis lease only saves them redundant scans.
type Publisher struct {
	events   *repository.EventRepository
	redis    *redis.Client
	interval time.Duration
	owner    string
	now      func() time.Time
}

// New creates a publisher. redisClient may be nil, in which case every tick
// runs the update.
func New(events *repository.EventRepository, redisClient *redis.Client, interval time.Duration) *Publisher {
	return &Publisher{
		events:   events,
		redis:    redisClient,
		interval: interval,
		owner:    uuid.NewString(),
		now:      time.Now,
	}
}

// Run publishes due events immediately and then on every tick until ctx ends.
func (p *Publisher) Run(ctx context.Context) error {
	log := logger.Named("publisher")
	log.Info("Publisher started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error("Publishing due events failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("Publisher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce publishes every event scheduled at or before now and reports how
// many changed. It returns 0 without touching the database when another
// replica holds the lease for this tick.
func (p *Publisher) RunOnce(ctx context.Context) (int64, error) {
	if !p.acquireLease(ctx) {
		return 0, nil
	}

	published, err := p.events.PublishDue(ctx, p.now().UTC())
	if err != nil {
		return 0, err
	}
	if published > 0 {
		logger.Log.Info("Published scheduled events", zap.Int64("count", published))
	}
	return published, nil
}

// acquireLease fails open: a Redis outage must not stop publication.
func (p *Publisher) acquireLease(ctx context.Context) bool {
	if p.redis == nil {
		return true
	}

	// Expire a little before the next tick so the holder's next run, or any
	// other replica's, can take it.
	ttl := p.interval - p.interval/10
	ok, err := p.redis.SetNX(ctx, leaseKey, p.owner, ttl).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Log.Warn("Publisher lease unavailable, running anyway", zap.Error(err))
		}
		return true
	}
	return ok
}
