// Package repository provides typed access to the persisted ClimaPro state:
// favorites, recent searches, settings, the last viewed city and the
// per-city weather snapshot cache.
//
// Storage failures never reach callers. Reads fall back to the empty or
// default value, writes are dropped, and every failure is logged, counted
// and handed to the configured FailureReporter.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/store"
	"go.uber.org/zap"
)

// Persisted keys, relative to the store prefix.
const (
	KeyFavorites      = "favorites"
	KeySettings       = "settings"
	KeyRecentSearches = "recent_searches"
	KeyCachedWeather  = "cached_weather"
	KeyLastCity       = "last_city"
)

const (
	DefaultFreshnessWindow = time.Hour
	DefaultRecentLimit     = 10
)

// CachedWeatherKey returns the key a city's snapshot is cached under.
func CachedWeatherKey(cityID string) string {
	return KeyCachedWeather + "/" + cityID
}

// FailureReporter is notified of every absorbed storage failure.
type FailureReporter interface {
	ReportPersistenceFailure(ctx context.Context, operation, key string, err error)
}

// FailureReporterFunc adapts a function to FailureReporter.
type FailureReporterFunc func(ctx context.Context, operation, key string, err error)

func (f FailureReporterFunc) ReportPersistenceFailure(ctx context.Context, operation, key string, err error) {
	f(ctx, operation, key, err)
}

type Options struct {
	// Clock defaults to time.Now.
	Clock func() time.Time
	// FreshnessWindow is how long a cached snapshot is served. Defaults to one hour.
	FreshnessWindow time.Duration
	// RecentLimit caps the recent searches list. Defaults to 10.
	RecentLimit int
	Reporter    FailureReporter
}

type WeatherRepository struct {
	kv          store.KVStore
	log         *zap.SugaredLogger
	clock       func() time.Time
	freshness   atomic.Int64
	recentLimit int
	reporter    FailureReporter
	metrics     *metrics

	// mu serializes read-modify-write mutations.
	mu sync.Mutex
}

func NewWeatherRepository(kv store.KVStore, opts Options) *WeatherRepository {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	r := &WeatherRepository{
		kv:          kv,
		log:         logger.GetLogger().Named("repository"),
		clock:       opts.Clock,
		recentLimit: opts.RecentLimit,
		reporter:    opts.Reporter,
		metrics:     newMetrics(),
	}
	r.freshness.Store(int64(opts.FreshnessWindow))
	return r
}

// FreshnessWindow returns the current cache freshness window.
func (r *WeatherRepository) FreshnessWindow() time.Duration {
	return time.Duration(r.freshness.Load())
}

// SetFreshnessWindow changes the freshness window at runtime. Non-positive
// values are ignored.
func (r *WeatherRepository) SetFreshnessWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	if old := time.Duration(r.freshness.Swap(int64(d))); old != d {
		r.log.Infow("Freshness window changed", "old", old, "new", d)
	}
}

// SetReporter replaces the failure reporter. It is meant to be called during
// wiring, before the repository is shared.
func (r *WeatherRepository) SetReporter(reporter FailureReporter) {
	r.reporter = reporter
}

func (r *WeatherRepository) fail(ctx context.Context, operation, key string, err error) {
	r.log.Errorw("Storage operation failed", "operation", operation, "key", key, "error", err)
	r.metrics.failures.WithLabelValues(operation).Inc()
	if r.reporter != nil {
		r.reporter.ReportPersistenceFailure(ctx, operation, key, err)
	}
}

// readJSON decodes key into dst. It reports whether a value was found and
// decoded; any failure is absorbed and dst should be treated as absent.
func (r *WeatherRepository) readJSON(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := r.kv.Get(ctx, key)
	if err != nil {
		r.fail(ctx, "read", key, err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		r.fail(ctx, "decode", key, fmt.Errorf("decode %s: %w", key, err))
		return false
	}
	return true
}

func (r *WeatherRepository) writeJSON(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.fail(ctx, "encode", key, fmt.Errorf("encode %s: %w", key, err))
		return
	}
	if err := r.kv.Set(ctx, key, string(data)); err != nil {
		r.fail(ctx, "write", key, err)
	}
}

func (r *WeatherRepository) remove(ctx context.Context, key string) {
	if err := r.kv.Remove(ctx, key); err != nil {
		r.fail(ctx, "remove", key, err)
	}
}
