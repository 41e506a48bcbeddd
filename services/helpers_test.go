package services

import (
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/climapro-backend/repository"
	"github.com/NomadCrew/climapro-backend/store"
	"github.com/NomadCrew/climapro-backend/store/memory"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	mem       *memory.Store
	kv        store.KVStore
	repo      *repository.WeatherRepository
	clock     *fakeClock
	generator *MockGenerator
	source    *WeatherSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	resetMetricsForTesting(prometheus.NewRegistry())
	t.Cleanup(func() { resetMetricsForTesting(prometheus.NewRegistry()) })

	clock := newFakeClock()
	mem := memory.New()
	kv := store.WithPrefix(mem, "@climapro")
	repo := repository.NewWeatherRepository(kv, repository.Options{Clock: clock.Now})
	generator := NewSeededMockGenerator(42, clock.Now)
	return &fixture{
		mem:       mem,
		kv:        kv,
		repo:      repo,
		clock:     clock,
		generator: generator,
		source:    NewWeatherSource(repo, generator, WithSourceClock(clock.Now)),
	}
}

func utcCity(id string) types.CityLocation {
	return types.CityLocation{
		ID:          id,
		Name:        "Test " + id,
		Country:     "Nowhere",
		Coordinates: types.Coordinates{Latitude: 10, Longitude: 10},
		Timezone:    "UTC",
	}
}
