package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/climapro-backend/internal/events"
	"github.com/NomadCrew/climapro-backend/middleware"
	"github.com/NomadCrew/climapro-backend/repository"
	"github.com/NomadCrew/climapro-backend/services"
	"github.com/NomadCrew/climapro-backend/store"
	"github.com/NomadCrew/climapro-backend/store/memory"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	coordinator *services.WeatherCoordinator
	source      *services.WeatherSource
	location    *services.ClientLocationProvider
	publisher   *events.MockPublisher
}

// newTestEnv starts a coordinator over an in-memory store; it loads the
// default city during Start.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := store.WithPrefix(memory.New(), "@climapro")
	repo := repository.NewWeatherRepository(kv, repository.Options{})
	source := services.NewWeatherSource(repo, services.NewMockGenerator())
	location := services.NewClientLocationProvider()
	publisher := events.NewMockPublisher()
	coordinator := services.NewWeatherCoordinator(repo, source, location, publisher, services.CoordinatorOptions{
		DefaultCityID: "new-york",
	})
	require.NoError(t, coordinator.Start(context.Background()))
	t.Cleanup(coordinator.Close)

	return &testEnv{coordinator: coordinator, source: source, location: location, publisher: publisher}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, snapshot types.WeatherSnapshot, unit types.TemperatureUnit) (services.Summary, error) {
	args := m.Called(ctx, snapshot, unit)
	return args.Get(0).(services.Summary), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) types.HealthCheck {
	args := m.Called(ctx)
	return args.Get(0).(types.HealthCheck)
}
