package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/NomadCrew/climapro-backend/services"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSettingsRouter(t *testing.T, env *testEnv) *gin.Engine {
	t.Helper()
	theme, err := services.NewThemeService(env.coordinator)
	require.NoError(t, err)

	h := NewSettingsHandler(env.coordinator, theme, NewClientConfig(300*time.Millisecond, 2, 10))
	r := newTestRouter()
	r.GET("/settings", h.GetSettingsHandler)
	r.PATCH("/settings", h.PatchSettingsHandler)
	r.PUT("/settings/:key", h.UpdateSettingHandler)
	r.GET("/theme", h.GetThemeHandler)
	r.PUT("/theme/mode", h.SetThemeModeHandler)
	r.GET("/config/client", h.ClientConfigHandler)
	return r
}

func TestSettingsHandler_Defaults(t *testing.T) {
	env := newTestEnv(t)
	r := setupSettingsRouter(t, env)

	w := doJSON(t, r, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.DefaultSettings(), decode[types.UserSettings](t, w))
}

func TestSettingsHandler_Patch(t *testing.T) {
	env := newTestEnv(t)
	r := setupSettingsRouter(t, env)

	w := doJSON(t, r, http.MethodPatch, "/settings", gin.H{"temperatureUnit": "fahrenheit", "severeWeatherAlerts": false})
	require.Equal(t, http.StatusOK, w.Code)

	settings := decode[types.UserSettings](t, w)
	assert.Equal(t, types.Fahrenheit, settings.TemperatureUnit)
	assert.False(t, settings.SevereWeatherAlerts)
	assert.Equal(t, types.KilometersPerHour, settings.SpeedUnit)
	assert.Equal(t, settings, env.coordinator.State().Settings)

	w = doJSON(t, r, http.MethodPatch, "/settings", gin.H{"speedUnit": "knots"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, types.KilometersPerHour, env.coordinator.State().Settings.SpeedUnit)
}

func TestSettingsHandler_UpdateSingle(t *testing.T) {
	env := newTestEnv(t)
	r := setupSettingsRouter(t, env)

	tests := []struct {
		name       string
		key        string
		value      interface{}
		wantStatus int
	}{
		{"speed unit", types.SettingSpeedUnit, "mph", http.StatusOK},
		{"notifications", types.SettingNotificationsEnabled, false, http.StatusOK},
		{"wrong value type", types.SettingNotificationsEnabled, "no", http.StatusBadRequest},
		{"unknown key", "fontSize", 12, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPut, "/settings/"+tt.key, SettingValue{Value: tt.value})
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	settings := env.coordinator.State().Settings
	assert.Equal(t, types.MilesPerHour, settings.SpeedUnit)
	assert.False(t, settings.NotificationsEnabled)
}

func TestSettingsHandler_Theme(t *testing.T) {
	env := newTestEnv(t)
	r := setupSettingsRouter(t, env)

	w := doJSON(t, r, http.MethodGet, "/theme?systemScheme=dark", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[types.ResolvedTheme](t, w)
	assert.Equal(t, types.ThemeModeSystem, resolved.ThemeMode)
	assert.True(t, resolved.IsDark)
	assert.Len(t, resolved.Theme.GradientColors, 3)

	w = doJSON(t, r, http.MethodGet, "/theme?systemScheme=sepia", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/theme/mode?systemScheme=dark", ThemeModeRequest{Mode: types.ThemeModeLight})
	require.Equal(t, http.StatusOK, w.Code)
	resolved = decode[types.ResolvedTheme](t, w)
	assert.Equal(t, types.ThemeModeLight, resolved.ThemeMode)
	assert.False(t, resolved.IsDark)
	assert.Equal(t, types.ThemeModeLight, env.coordinator.State().Settings.ThemeMode)

	w = doJSON(t, r, http.MethodPut, "/theme/mode", ThemeModeRequest{Mode: "neon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsHandler_ClientConfig(t *testing.T) {
	env := newTestEnv(t)
	r := setupSettingsRouter(t, env)

	w := doJSON(t, r, http.MethodGet, "/config/client", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ClientConfig{SearchDebounceMs: 300, MinQueryLength: 2, RecentLimit: 10}, decode[ClientConfig](t, w))
}
