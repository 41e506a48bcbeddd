package services

import (
	"context"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/store"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// StateReader exposes the coordinator's published state.
type StateReader interface {
	State() types.WeatherState
}

type HealthService struct {
	storage        store.Pinger
	storageBackend string
	redisClient    redis.Cmdable
	state          StateReader
	version        string
	startTime      time.Time
	log            *zap.SugaredLogger
}

// NewHealthService builds the health checker. redisClient and state may be
// nil; their components are then omitted.
func NewHealthService(storage store.Pinger, storageBackend string, redisClient redis.Cmdable, state StateReader, version string) *HealthService {
	return &HealthService{
		storage:        storage,
		storageBackend: storageBackend,
		redisClient:    redisClient,
		state:          state,
		version:        version,
		startTime:      time.Now(),
		log:            logger.GetLogger().Named("health"),
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	merge := func(name string, comp types.HealthComponent) {
		components[name] = comp
		switch comp.Status {
		case types.HealthStatusDown:
			overallStatus = types.HealthStatusDown
		case types.HealthStatusDegraded:
			if overallStatus != types.HealthStatusDown {
				overallStatus = types.HealthStatusDegraded
			}
		}
	}

	merge("storage", h.checkStorage(ctx))
	if h.redisClient != nil {
		merge("redis", h.checkRedis(ctx))
	}
	if h.state != nil {
		merge("coordinator", h.checkCoordinator())
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkStorage(ctx context.Context) types.HealthComponent {
	if h.storage == nil {
		return types.HealthComponent{Status: types.HealthStatusUp, Details: h.storageBackend}
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Errorw("Storage health check failed", "backend", h.storageBackend, "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Storage backend " + h.storageBackend + " unreachable",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp, Details: h.storageBackend}
}

// checkRedis reports degraded rather than down: Redis only mirrors events.
func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkCoordinator() types.HealthComponent {
	state := h.state.State()
	switch state.Status {
	case types.StatusIdle:
		return types.HealthComponent{Status: types.HealthStatusDegraded, Details: "Startup not complete"}
	case types.StatusError:
		return types.HealthComponent{Status: types.HealthStatusDegraded, Details: state.Error}
	default:
		return types.HealthComponent{Status: types.HealthStatusUp}
	}
}
