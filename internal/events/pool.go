package events

import (
	"fmt"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/panjf2000/ants/v2"
)

// PoolConfig sizes the goroutine pool that runs event handlers and the Redis
// mirror.
type PoolConfig struct {
	Capacity         int
	ExpiryDuration   time.Duration
	MaxBlockingTasks int
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Capacity:         16,
		ExpiryDuration:   time.Minute,
		MaxBlockingTasks: 1024,
	}
}

// NewPool builds an ants pool whose panics are logged instead of crashing
// the process.
func NewPool(cfg PoolConfig) (*ants.Pool, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultPoolConfig().Capacity
	}
	log := logger.GetLogger().Named("event_pool")

	pool, err := ants.NewPool(cfg.Capacity,
		ants.WithExpiryDuration(cfg.ExpiryDuration),
		ants.WithMaxBlockingTasks(cfg.MaxBlockingTasks),
		ants.WithPanicHandler(func(p interface{}) {
			log.Errorw("Event task panicked", "panic", fmt.Sprint(p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create event pool: %w", err)
	}
	return pool, nil
}
