package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/internal/events"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StateRepository is the persisted state the coordinator reads and writes.
type StateRepository interface {
	GetFavorites(ctx context.Context) []types.FavoriteCity
	AddFavorite(ctx context.Context, city types.CityLocation) []types.FavoriteCity
	RemoveFavorite(ctx context.Context, cityID string) []types.FavoriteCity
	ReorderFavorites(ctx context.Context, fromIndex, toIndex int) ([]types.FavoriteCity, error)
	GetRecentSearches(ctx context.Context) []types.CityLocation
	AddRecentSearch(ctx context.Context, city types.CityLocation) []types.CityLocation
	ClearRecentSearches(ctx context.Context)
	GetSettings(ctx context.Context) types.UserSettings
	UpdateSettings(ctx context.Context, patch types.SettingsPatch) (types.UserSettings, error)
	UpdateSetting(ctx context.Context, key string, value interface{}) (types.UserSettings, error)
	GetLastCity(ctx context.Context) (*types.CityLocation, bool)
	SetLastCity(ctx context.Context, city types.CityLocation)
}

// WeatherProvider produces snapshots and resolves catalog cities.
type WeatherProvider interface {
	GetWeatherForCity(ctx context.Context, cityID string) (types.WeatherSnapshot, error)
	GetWeatherForLocation(ctx context.Context, coords types.Coordinates) (types.WeatherSnapshot, error)
	GetCityByID(id string) (types.CityLocation, bool)
}

const (
	DefaultCityID         = "new-york"
	defaultStartupTimeout = 10 * time.Second
	fetchKindCity         = "city"
	fetchKindLocation     = "location"
)

type CoordinatorOptions struct {
	// DefaultCityID is fetched at startup when no last city is stored.
	DefaultCityID  string
	StartupTimeout time.Duration
	Clock          func() time.Time
}

// WeatherCoordinator owns the in-memory WeatherState. Every change bumps the
// state version and is published on types.StateTopic.
//
// Fetches run without holding the state lock, so concurrent fetches race and
// the last one to complete wins.
type WeatherCoordinator struct {
	repo      StateRepository
	source    WeatherProvider
	location  LocationProvider
	publisher types.EventPublisher
	opts      CoordinatorOptions
	log       *zap.SugaredLogger
	metrics   *metrics

	mu    sync.RWMutex
	state types.WeatherState

	// pubMu orders publication by version. Event handlers may read State
	// but must not mutate the coordinator synchronously.
	pubMu sync.Mutex

	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

func NewWeatherCoordinator(repo StateRepository, source WeatherProvider, location LocationProvider, publisher types.EventPublisher, opts CoordinatorOptions) *WeatherCoordinator {
	if opts.DefaultCityID == "" {
		opts.DefaultCityID = DefaultCityID
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = defaultStartupTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &WeatherCoordinator{
		repo:      repo,
		source:    source,
		location:  location,
		publisher: publisher,
		opts:      opts,
		log:       logger.GetLogger().Named("coordinator"),
		metrics:   newMetrics(),
		state: types.WeatherState{
			Status:         types.StatusIdle,
			Favorites:      []types.FavoriteCity{},
			RecentSearches: []types.CityLocation{},
			Settings:       types.DefaultSettings(),
		},
		closed: make(chan struct{}),
	}
}

// Start loads the persisted collections concurrently and then fetches the
// last viewed city, or the default city. It runs once; later calls are no-ops.
func (c *WeatherCoordinator) Start(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		err = c.start(ctx)
	})
	return err
}

func (c *WeatherCoordinator) start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.StartupTimeout)
	defer cancel()

	var (
		favorites []types.FavoriteCity
		recents   []types.CityLocation
		settings  = types.DefaultSettings()
		lastCity  *types.CityLocation
	)

	// Loads are independent: each absorbs its own failure and leaves its
	// default in place.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		favorites = c.repo.GetFavorites(gctx)
		return nil
	})
	g.Go(func() error {
		recents = c.repo.GetRecentSearches(gctx)
		return nil
	})
	g.Go(func() error {
		settings = c.repo.GetSettings(gctx)
		return nil
	})
	g.Go(func() error {
		if city, ok := c.repo.GetLastCity(gctx); ok {
			lastCity = city
		}
		return nil
	})
	_ = g.Wait()

	c.update(types.EventTypeSettingsUpdated, func(s *types.WeatherState) {
		s.Favorites = nonNilFavorites(favorites)
		s.RecentSearches = nonNilCities(recents)
		s.Settings = settings
	})
	c.log.Infow("Loaded persisted state",
		"favorites", len(favorites),
		"recentSearches", len(recents),
		"hasLastCity", lastCity != nil)

	if lastCity == nil {
		city, ok := c.source.GetCityByID(c.opts.DefaultCityID)
		if !ok {
			return fmt.Errorf("default city %q is not in the catalog", c.opts.DefaultCityID)
		}
		lastCity = &city
	}

	c.SetSelectedCity(lastCity)
	if _, known := c.source.GetCityByID(lastCity.ID); !known {
		// A location-based city is refetched from its coordinates.
		c.beginFetch(nil)
		_, err := c.fetchCoordinates(ctx, lastCity.Coordinates)
		c.logStartupFetch(lastCity.ID, err)
		return nil
	}
	_, err := c.FetchWeatherForCity(ctx, lastCity.ID)
	c.logStartupFetch(lastCity.ID, err)
	return nil
}

func (c *WeatherCoordinator) logStartupFetch(cityID string, err error) {
	if err != nil {
		c.log.Warnw("Initial weather fetch failed", "cityID", cityID, "error", err)
		return
	}
	c.log.Infow("Initial weather fetch complete", "cityID", cityID)
}

// Close stops publication. The publisher itself is owned by the caller.
func (c *WeatherCoordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.log.Info("Weather coordinator closed")
	})
}

func (c *WeatherCoordinator) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// State returns a copy of the current state.
func (c *WeatherCoordinator) State() types.WeatherState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// update applies fn to the state, bumps the version and publishes the result
// as eventType.
func (c *WeatherCoordinator) update(eventType types.EventType, fn func(*types.WeatherState)) types.WeatherState {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	fn(&c.state)
	c.state.Version++
	c.state.UpdatedAt = c.opts.Clock().UTC()
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.metrics.stateVersion.Set(float64(snapshot.Version))
	c.publish(eventType, snapshot)
	return snapshot
}

func (c *WeatherCoordinator) publish(eventType types.EventType, state types.WeatherState) {
	if c.publisher == nil || c.isClosed() {
		return
	}
	event, err := events.NewEvent(eventType, types.StateTopic, "coordinator", types.StateChangedPayload{State: state})
	if err != nil {
		c.log.Errorw("Failed to build state event", "eventType", eventType, "error", err)
		return
	}
	if err := c.publisher.Publish(context.Background(), types.StateTopic, event); err != nil {
		c.log.Warnw("Failed to publish state", "eventType", eventType, "version", state.Version, "error", err)
	}
}

func (c *WeatherCoordinator) beginFetch(selected *types.CityLocation) {
	c.update(types.EventTypeWeatherLoading, func(s *types.WeatherState) {
		s.Status = types.StatusLoading
		s.Error = ""
		if selected != nil {
			city := *selected
			s.SelectedCity = &city
		}
	})
}

func (c *WeatherCoordinator) finishFetch(snapshot types.WeatherSnapshot, selected *types.CityLocation) types.WeatherState {
	return c.update(types.EventTypeWeatherUpdated, func(s *types.WeatherState) {
		snap := snapshot
		s.Status = types.StatusLoaded
		s.Snapshot = &snap
		s.Error = ""
		if selected != nil {
			city := *selected
			s.SelectedCity = &city
		}
	})
}

// failFetch records err; the previous snapshot is kept.
func (c *WeatherCoordinator) failFetch(err error) types.WeatherState {
	return c.update(types.EventTypeWeatherFailed, func(s *types.WeatherState) {
		s.Status = types.StatusError
		s.Error = errorMessage(err)
	})
}

func errorMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func (c *WeatherCoordinator) observeFetch(kind string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.fetches.WithLabelValues(kind, outcome).Inc()
	c.metrics.fetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// FetchWeatherForCity loads the snapshot for a catalog city. A known city is
// selected and persisted as the last city before the fetch starts.
func (c *WeatherCoordinator) FetchWeatherForCity(ctx context.Context, cityID string) (types.WeatherState, error) {
	start := time.Now()
	city, known := c.source.GetCityByID(cityID)
	if known {
		c.beginFetch(&city)
		c.repo.SetLastCity(ctx, city)
	} else {
		c.beginFetch(nil)
	}

	snapshot, err := c.source.GetWeatherForCity(ctx, cityID)
	c.observeFetch(fetchKindCity, start, err)
	if err != nil {
		c.log.Warnw("Weather fetch failed", "cityID", cityID, "error", err)
		return c.failFetch(err), err
	}
	return c.finishFetch(snapshot, nil), nil
}

// FetchWeatherForLocation loads the snapshot for the device position. A
// denied permission fails with PermissionDenied; a granted permission without
// a position fix fails with LocationUnavailable.
func (c *WeatherCoordinator) FetchWeatherForLocation(ctx context.Context) (types.WeatherState, error) {
	c.beginFetch(nil)

	if c.location == nil || !c.location.RequestPermission(ctx) {
		appErr := errors.PermissionDenied("location permission not granted")
		c.metrics.fetches.WithLabelValues(fetchKindLocation, "denied").Inc()
		return c.failFetch(appErr), appErr
	}

	coords, err := c.location.GetCurrentPosition(ctx)
	if err != nil || coords == nil {
		appErr := errors.LocationUnavailable(err)
		c.metrics.fetches.WithLabelValues(fetchKindLocation, "unavailable").Inc()
		return c.failFetch(appErr), appErr
	}
	return c.fetchCoordinates(ctx, *coords)
}

func (c *WeatherCoordinator) fetchCoordinates(ctx context.Context, coords types.Coordinates) (types.WeatherState, error) {
	start := time.Now()
	snapshot, err := c.source.GetWeatherForLocation(ctx, coords)
	c.observeFetch(fetchKindLocation, start, err)
	if err != nil {
		c.log.Warnw("Location weather fetch failed", "error", err)
		return c.failFetch(err), err
	}
	location := snapshot.Location
	state := c.finishFetch(snapshot, &location)
	c.repo.SetLastCity(ctx, location)
	return state, nil
}

// Refresh refetches the selected city.
func (c *WeatherCoordinator) Refresh(ctx context.Context) (types.WeatherState, error) {
	selected := c.State().SelectedCity
	if selected == nil {
		return c.State(), errors.ValidationFailed("nothing to refresh", "no city is selected")
	}
	if _, known := c.source.GetCityByID(selected.ID); !known && strings.HasPrefix(selected.ID, "custom-") {
		c.beginFetch(nil)
		return c.fetchCoordinates(ctx, selected.Coordinates)
	}
	return c.FetchWeatherForCity(ctx, selected.ID)
}

// SetSelectedCity changes the selection without fetching. nil clears it.
func (c *WeatherCoordinator) SetSelectedCity(city *types.CityLocation) types.WeatherState {
	return c.update(types.EventTypeCitySelected, func(s *types.WeatherState) {
		if city == nil {
			s.SelectedCity = nil
			return
		}
		selected := *city
		s.SelectedCity = &selected
	})
}

func (c *WeatherCoordinator) AddFavorite(ctx context.Context, city types.CityLocation) []types.FavoriteCity {
	favorites := c.repo.AddFavorite(ctx, city)
	c.setFavorites(favorites)
	return favorites
}

func (c *WeatherCoordinator) RemoveFavorite(ctx context.Context, cityID string) []types.FavoriteCity {
	favorites := c.repo.RemoveFavorite(ctx, cityID)
	c.setFavorites(favorites)
	return favorites
}

// ReorderFavorites moves the favorite at fromIndex to toIndex. Out-of-range
// indices are rejected and leave the state unchanged.
func (c *WeatherCoordinator) ReorderFavorites(ctx context.Context, fromIndex, toIndex int) ([]types.FavoriteCity, error) {
	favorites, err := c.repo.ReorderFavorites(ctx, fromIndex, toIndex)
	if err != nil {
		return c.State().Favorites, err
	}
	c.setFavorites(favorites)
	return favorites, nil
}

func (c *WeatherCoordinator) setFavorites(favorites []types.FavoriteCity) {
	c.update(types.EventTypeFavoritesUpdated, func(s *types.WeatherState) {
		s.Favorites = nonNilFavorites(favorites)
	})
}

// IsFavorite answers from the in-memory favorites.
func (c *WeatherCoordinator) IsFavorite(cityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.state.Favorites {
		if f.ID == cityID {
			return true
		}
	}
	return false
}

func (c *WeatherCoordinator) AddRecentSearch(ctx context.Context, city types.CityLocation) []types.CityLocation {
	recents := c.repo.AddRecentSearch(ctx, city)
	c.update(types.EventTypeRecentsUpdated, func(s *types.WeatherState) {
		s.RecentSearches = nonNilCities(recents)
	})
	return recents
}

func (c *WeatherCoordinator) ClearRecentSearches(ctx context.Context) {
	c.repo.ClearRecentSearches(ctx)
	c.update(types.EventTypeRecentsUpdated, func(s *types.WeatherState) {
		s.RecentSearches = []types.CityLocation{}
	})
}

// UpdateSettings merges patch over the current settings.
func (c *WeatherCoordinator) UpdateSettings(ctx context.Context, patch types.SettingsPatch) (types.UserSettings, error) {
	settings, err := c.repo.UpdateSettings(ctx, patch)
	if err != nil {
		return settings, err
	}
	c.setSettings(settings)
	return settings, nil
}

func (c *WeatherCoordinator) UpdateSetting(ctx context.Context, key string, value interface{}) (types.UserSettings, error) {
	settings, err := c.repo.UpdateSetting(ctx, key, value)
	if err != nil {
		return settings, err
	}
	c.setSettings(settings)
	return settings, nil
}

func (c *WeatherCoordinator) setSettings(settings types.UserSettings) {
	c.update(types.EventTypeSettingsUpdated, func(s *types.WeatherState) {
		s.Settings = settings
	})
}

// FormatTemperature renders a °C value in the user's temperature unit.
func (c *WeatherCoordinator) FormatTemperature(celsius float64) string {
	c.mu.RLock()
	unit := c.state.Settings.TemperatureUnit
	c.mu.RUnlock()
	return FormatTemperature(celsius, unit)
}

// FormatSpeed renders a km/h value in the user's speed unit.
func (c *WeatherCoordinator) FormatSpeed(kmh float64) string {
	c.mu.RLock()
	unit := c.state.Settings.SpeedUnit
	c.mu.RUnlock()
	return FormatSpeed(kmh, unit)
}

// Subscribe follows state events. The returned cancel func ends the
// subscription; so does ctx.
func (c *WeatherCoordinator) Subscribe(ctx context.Context, filters ...types.EventType) (<-chan types.Event, func(), error) {
	if c.publisher == nil {
		return nil, nil, errors.ServiceUnavailable("state publication is disabled")
	}
	subscriberID := uuid.NewString()
	ch, err := c.publisher.Subscribe(ctx, types.StateTopic, subscriberID, filters...)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe to state: %w", err)
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := c.publisher.Unsubscribe(context.Background(), types.StateTopic, subscriberID); err != nil {
				c.log.Debugw("Unsubscribe after close", "subscriberID", subscriberID, "error", err)
			}
		})
	}
	return ch, cancel, nil
}

func nonNilFavorites(f []types.FavoriteCity) []types.FavoriteCity {
	if f == nil {
		return []types.FavoriteCity{}
	}
	return f
}

func nonNilCities(c []types.CityLocation) []types.CityLocation {
	if c == nil {
		return []types.CityLocation{}
	}
	return c
}
