package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/internal/events"
	"github.com/NomadCrew/climapro-backend/repository"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, f *fixture, location LocationProvider) (*WeatherCoordinator, *events.MockPublisher) {
	t.Helper()
	publisher := events.NewMockPublisher()
	if location == nil {
		location = NewStaticLocationProvider(false, nil)
	}
	c := NewWeatherCoordinator(f.repo, f.source, location, publisher, CoordinatorOptions{Clock: f.clock.Now})
	t.Cleanup(c.Close)
	return c, publisher
}

func publishedStates(t *testing.T, publisher *events.MockPublisher) []types.WeatherState {
	t.Helper()
	var states []types.WeatherState
	for _, e := range publisher.GetEvents(types.StateTopic) {
		var payload types.StateChangedPayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		states = append(states, payload.State)
	}
	return states
}

func TestCoordinator_StartFetchesDefaultCity(t *testing.T) {
	f := newFixture(t)
	c, publisher := newTestCoordinator(t, f, nil)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))

	state := c.State()
	assert.Equal(t, types.StatusLoaded, state.Status)
	require.NotNil(t, state.SelectedCity)
	assert.Equal(t, "new-york", state.SelectedCity.ID)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, "new-york", state.Snapshot.Location.ID)
	assert.Empty(t, state.Favorites)
	assert.Empty(t, state.RecentSearches)
	assert.Equal(t, types.DefaultSettings(), state.Settings)

	last, ok := f.repo.GetLastCity(ctx)
	require.True(t, ok)
	assert.Equal(t, "new-york", last.ID)

	// A second Start is a no-op.
	version := state.Version
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, version, c.State().Version)
	assert.Len(t, publishedStates(t, publisher), int(version))
}

func TestCoordinator_StartRestoresPersistedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	london, _ := f.source.GetCityByID("london")
	paris, _ := f.source.GetCityByID("paris")

	f.repo.AddFavorite(ctx, paris)
	f.repo.AddRecentSearch(ctx, london)
	_, err := f.repo.UpdateSetting(ctx, types.SettingTemperatureUnit, "fahrenheit")
	require.NoError(t, err)
	f.repo.SetLastCity(ctx, london)

	c, _ := newTestCoordinator(t, f, nil)
	require.NoError(t, c.Start(ctx))

	state := c.State()
	assert.Equal(t, "london", state.SelectedCity.ID)
	assert.Equal(t, "london", state.Snapshot.Location.ID)
	require.Len(t, state.Favorites, 1)
	assert.Equal(t, "paris", state.Favorites[0].ID)
	require.Len(t, state.RecentSearches, 1)
	assert.Equal(t, types.Fahrenheit, state.Settings.TemperatureUnit)
	assert.Equal(t, "68°F", c.FormatTemperature(20))
}

func TestCoordinator_StartIsolatesFailingLoads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.Set(ctx, "@climapro/favorites", "{broken"))
	require.NoError(t, f.mem.Set(ctx, "@climapro/settings", `{"speedUnit":"mph"}`))

	c, _ := newTestCoordinator(t, f, nil)
	require.NoError(t, c.Start(ctx))

	state := c.State()
	assert.Empty(t, state.Favorites)
	assert.Equal(t, types.MilesPerHour, state.Settings.SpeedUnit)
	assert.Equal(t, types.Celsius, state.Settings.TemperatureUnit)
	assert.Equal(t, types.StatusLoaded, state.Status)
}

func TestCoordinator_StartRefetchesLocationCity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.SetLastCity(ctx, types.CityLocation{
		ID:          "custom-01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Name:        "Sydney",
		Country:     "Australia",
		Coordinates: types.Coordinates{Latitude: -33.9, Longitude: 151.2},
		Timezone:    "Australia/Sydney",
	})

	c, publisher := newTestCoordinator(t, f, nil)
	require.NoError(t, c.Start(ctx))

	state := c.State()
	assert.Equal(t, types.StatusLoaded, state.Status)
	assert.Equal(t, "Sydney", state.Snapshot.Location.Name)
	assert.True(t, strings.HasPrefix(state.SelectedCity.ID, "custom-"))

	var statuses []types.FetchStatus
	for _, s := range publishedStates(t, publisher) {
		statuses = append(statuses, s.Status)
	}
	assert.Equal(t, []types.FetchStatus{
		types.StatusIdle,    // persisted collections
		types.StatusIdle,    // selection
		types.StatusLoading, // refetch by coordinates
		types.StatusLoaded,
	}, statuses)
}

func TestCoordinator_StartRejectsUnknownDefaultCity(t *testing.T) {
	f := newFixture(t)
	c := NewWeatherCoordinator(f.repo, f.source, nil, nil, CoordinatorOptions{DefaultCityID: "atlantis"})
	assert.Error(t, c.Start(context.Background()))
}

func TestCoordinator_FailedFetchKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	c, _ := newTestCoordinator(t, f, nil)
	ctx := context.Background()

	loaded, err := c.FetchWeatherForCity(ctx, "tokyo")
	require.NoError(t, err)
	require.NotNil(t, loaded.Snapshot)

	state, err := c.FetchWeatherForCity(ctx, "atlantis")
	require.Error(t, err)
	assert.Equal(t, types.StatusError, state.Status)
	assert.Equal(t, "City not found", state.Error)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, "tokyo", state.Snapshot.Location.ID)
	assert.Equal(t, "tokyo", state.SelectedCity.ID)

	state, err = c.FetchWeatherForCity(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, types.StatusLoaded, state.Status)
	assert.Empty(t, state.Error)
}

func TestCoordinator_FetchPublishesLoadingThenLoaded(t *testing.T) {
	f := newFixture(t)
	c, publisher := newTestCoordinator(t, f, nil)

	_, err := c.FetchWeatherForCity(context.Background(), "dubai")
	require.NoError(t, err)

	states := publishedStates(t, publisher)
	require.Len(t, states, 2)
	assert.Equal(t, types.StatusLoading, states[0].Status)
	assert.Equal(t, "dubai", states[0].SelectedCity.ID)
	assert.Equal(t, types.StatusLoaded, states[1].Status)

	evts := publisher.GetEvents(types.StateTopic)
	assert.Equal(t, types.EventTypeWeatherLoading, evts[0].Type)
	assert.Equal(t, types.EventTypeWeatherUpdated, evts[1].Type)
}

func TestCoordinator_LocationDenied(t *testing.T) {
	f := newFixture(t)
	c, _ := newTestCoordinator(t, f, NewStaticLocationProvider(false, nil))
	ctx := context.Background()

	_, err := c.FetchWeatherForCity(ctx, "london")
	require.NoError(t, err)

	state, err := c.FetchWeatherForLocation(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.PermissionDeniedError))
	assert.Equal(t, types.StatusError, state.Status)
	assert.Equal(t, "Location permission denied or unavailable", state.Error)
	assert.Equal(t, "london", state.Snapshot.Location.ID)
}

func TestCoordinator_LocationGrantedWithoutFix(t *testing.T) {
	f := newFixture(t)
	c, publisher := newTestCoordinator(t, f, NewStaticLocationProvider(true, nil))

	state, err := c.FetchWeatherForLocation(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.LocationUnavailableErr))
	assert.Equal(t, types.StatusError, state.Status)

	states := publishedStates(t, publisher)
	require.Len(t, states, 2)
	assert.Equal(t, types.StatusLoading, states[0].Status)
	assert.Equal(t, types.StatusError, states[1].Status)
}

func TestCoordinator_LocationGranted(t *testing.T) {
	f := newFixture(t)
	coords := &types.Coordinates{Latitude: 51.5, Longitude: -0.12}
	c, _ := newTestCoordinator(t, f, NewStaticLocationProvider(true, coords))
	ctx := context.Background()

	state, err := c.FetchWeatherForLocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusLoaded, state.Status)
	assert.Equal(t, "London", state.SelectedCity.Name)
	assert.Equal(t, *coords, state.SelectedCity.Coordinates)
	assert.Equal(t, state.SelectedCity.ID, state.Snapshot.Location.ID)

	last, ok := f.repo.GetLastCity(ctx)
	require.True(t, ok)
	assert.Equal(t, state.SelectedCity.ID, last.ID)
}

func TestCoordinator_Refresh(t *testing.T) {
	f := newFixture(t)
	c, _ := newTestCoordinator(t, f, nil)
	ctx := context.Background()

	_, err := c.Refresh(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))

	first, err := c.FetchWeatherForCity(ctx, "tokyo")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	refreshed, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, first.Snapshot.LastUpdated.Equal(refreshed.Snapshot.LastUpdated))

	f.clock.Advance(2 * time.Hour)
	refreshed, err = c.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed.Snapshot.LastUpdated.After(first.Snapshot.LastUpdated))
}

func TestCoordinator_DelegatedIntents(t *testing.T) {
	f := newFixture(t)
	c, publisher := newTestCoordinator(t, f, nil)
	ctx := context.Background()
	tokyo, _ := f.source.GetCityByID("tokyo")
	paris, _ := f.source.GetCityByID("paris")
	sydney, _ := f.source.GetCityByID("sydney")

	c.AddFavorite(ctx, tokyo)
	c.AddFavorite(ctx, paris)
	c.AddFavorite(ctx, sydney)
	assert.True(t, c.IsFavorite("paris"))
	assert.False(t, c.IsFavorite("dubai"))

	favorites, err := c.ReorderFavorites(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"paris", "sydney", "tokyo"}, []string{favorites[0].ID, favorites[1].ID, favorites[2].ID})

	before := c.State().Version
	_, err = c.ReorderFavorites(ctx, 0, 3)
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
	assert.Equal(t, before, c.State().Version)

	c.RemoveFavorite(ctx, "sydney")
	state := c.State()
	require.Len(t, state.Favorites, 2)
	assert.Equal(t, 1, state.Favorites[1].Order)
	assert.Len(t, f.repo.GetFavorites(ctx), 2)

	c.AddRecentSearch(ctx, tokyo)
	c.AddRecentSearch(ctx, paris)
	assert.Equal(t, "paris", c.State().RecentSearches[0].ID)
	c.ClearRecentSearches(ctx)
	assert.Empty(t, c.State().RecentSearches)
	assert.Empty(t, f.repo.GetRecentSearches(ctx))

	mph := types.MilesPerHour
	settings, err := c.UpdateSettings(ctx, types.SettingsPatch{SpeedUnit: &mph})
	require.NoError(t, err)
	assert.Equal(t, types.MilesPerHour, settings.SpeedUnit)
	assert.Equal(t, types.Celsius, settings.TemperatureUnit)
	assert.Equal(t, "62 mph", c.FormatSpeed(100))

	_, err = c.UpdateSetting(ctx, "temperatureUnit", "kelvin")
	assert.Error(t, err)
	_, err = c.UpdateSetting(ctx, "temperatureUnit", "fahrenheit")
	require.NoError(t, err)
	assert.Equal(t, "32°F", c.FormatTemperature(0))

	c.SetSelectedCity(&sydney)
	assert.Equal(t, "sydney", c.State().SelectedCity.ID)
	c.SetSelectedCity(nil)
	assert.Nil(t, c.State().SelectedCity)

	states := publishedStates(t, publisher)
	for i := 1; i < len(states); i++ {
		assert.Equal(t, states[i-1].Version+1, states[i].Version)
	}
	assert.NotEmpty(t, publisher.EventsOfType(types.EventTypeFavoritesUpdated))
	assert.NotEmpty(t, publisher.EventsOfType(types.EventTypeSettingsUpdated))
}

func TestCoordinator_StateIsACopy(t *testing.T) {
	f := newFixture(t)
	c, _ := newTestCoordinator(t, f, nil)
	tokyo, _ := f.source.GetCityByID("tokyo")
	c.AddFavorite(context.Background(), tokyo)

	state := c.State()
	state.Favorites[0].Name = "mutated"
	assert.Equal(t, "Tokyo", c.State().Favorites[0].Name)
}

func TestCoordinator_ConcurrentFetches(t *testing.T) {
	f := newFixture(t)
	c, publisher := newTestCoordinator(t, f, nil)
	ctx := context.Background()

	ids := []string{"tokyo", "paris", "london", "dubai", "atlantis"}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = c.FetchWeatherForCity(ctx, id)
		}(ids[i%len(ids)])
	}
	wg.Wait()

	state := c.State()
	assert.NotEqual(t, types.StatusLoading, state.Status)
	states := publishedStates(t, publisher)
	require.NotEmpty(t, states)
	for i := 1; i < len(states); i++ {
		assert.Less(t, states[i-1].Version, states[i].Version)
	}
	assert.Equal(t, state.Version, states[len(states)-1].Version)
}

func TestCoordinator_SubscribeAndClose(t *testing.T) {
	f := newFixture(t)
	c, _ := newTestCoordinator(t, f, nil)

	ch, cancel, err := c.Subscribe(context.Background())
	require.NoError(t, err)

	c.SetSelectedCity(&types.CityLocation{ID: "x"})
	select {
	case e := <-ch:
		assert.Equal(t, types.EventTypeCitySelected, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no state event")
	}
	cancel()
	cancel()

	c.Close()
	c.SetSelectedCity(nil)
	assert.Nil(t, c.State().SelectedCity)
}

func TestCoordinator_PersistenceFailuresArePublished(t *testing.T) {
	f := newFixture(t)
	publisher := events.NewMockPublisher()
	f.repo.SetReporter(NewPersistenceReporter(publisher))
	ctx := context.Background()
	require.NoError(t, f.mem.Set(ctx, "@climapro/recent_searches", "[oops"))

	c := NewWeatherCoordinator(f.repo, f.source, nil, publisher, CoordinatorOptions{Clock: f.clock.Now})
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	failures := publisher.EventsOfType(types.EventTypePersistenceFailed)
	require.Len(t, failures, 1)
	var payload types.PersistenceFailedPayload
	require.NoError(t, json.Unmarshal(failures[0].Payload, &payload))
	assert.Equal(t, "decode", payload.Operation)
	assert.Equal(t, repository.KeyRecentSearches, payload.Key)
	assert.NotEmpty(t, payload.Error)
}
