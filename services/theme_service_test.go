package services

import (
	"context"
	"testing"

	"github.com/NomadCrew/climapro-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubThemeState struct {
	state types.WeatherState
}

func (s *stubThemeState) State() types.WeatherState {
	return s.state
}

func (s *stubThemeState) UpdateSetting(_ context.Context, key string, value interface{}) (types.UserSettings, error) {
	patch, err := types.PatchForKey(key, value)
	if err != nil {
		return s.state.Settings, err
	}
	updated := patch.Apply(s.state.Settings)
	if err := updated.Validate(); err != nil {
		return s.state.Settings, err
	}
	s.state.Settings = updated
	return updated, nil
}

func TestLoadThemes_EmbeddedCatalogIsComplete(t *testing.T) {
	palettes, err := LoadThemes(themesYAML)
	require.NoError(t, err)
	assert.Len(t, palettes, len(types.AllConditions))

	clearPalette := palettes[types.ConditionClear]
	assert.Equal(t, []string{"#87CEEB", "#4A90D9", "#2E5BBA"}, clearPalette.Light.GradientColors)
	assert.Equal(t, "#FFD700", clearPalette.Dark.Accent)
	assert.Equal(t, "rgba(99, 179, 237, 0.12)", palettes[types.ConditionRain].Dark.CardBackground)
	assert.Equal(t, "#01579B", palettes[types.ConditionWindy].Light.TextPrimary)
}

func TestLoadThemes_RejectsIncompleteCatalog(t *testing.T) {
	_, err := LoadThemes([]byte("clear:\n  light:\n    gradient_colors: [\"#fff\", \"#eee\", \"#ddd\"]\n"))
	assert.Error(t, err)

	_, err = LoadThemes([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestIsDark(t *testing.T) {
	assert.True(t, IsDark(types.ThemeModeDark, SchemeLight))
	assert.False(t, IsDark(types.ThemeModeLight, SchemeDark))
	assert.True(t, IsDark(types.ThemeModeSystem, SchemeDark))
	assert.False(t, IsDark(types.ThemeModeSystem, SchemeLight))
	assert.False(t, IsDark(types.ThemeModeSystem, ""))
}

func TestThemeService_CurrentFollowsSnapshotAndMode(t *testing.T) {
	state := &stubThemeState{state: types.WeatherState{Settings: types.DefaultSettings()}}
	svc, err := NewThemeService(state)
	require.NoError(t, err)

	resolved := svc.Current(SchemeLight)
	assert.Equal(t, types.ConditionClear, resolved.Condition)
	assert.False(t, resolved.IsDark)
	assert.Equal(t, types.ThemeModeSystem, resolved.ThemeMode)
	assert.Equal(t, "#87CEEB", resolved.Theme.GradientColors[0])

	state.state.Snapshot = &types.WeatherSnapshot{Current: types.CurrentWeather{Condition: types.ConditionSnow}}
	resolved = svc.Current(SchemeDark)
	assert.Equal(t, types.ConditionSnow, resolved.Condition)
	assert.True(t, resolved.IsDark)
	assert.Equal(t, "#283593", resolved.Theme.GradientColors[0])
}

func TestThemeService_SetThemeModePersists(t *testing.T) {
	state := &stubThemeState{state: types.WeatherState{Settings: types.DefaultSettings()}}
	svc, err := NewThemeService(state)
	require.NoError(t, err)

	resolved, err := svc.SetThemeMode(context.Background(), types.ThemeModeDark, SchemeLight)
	require.NoError(t, err)
	assert.True(t, resolved.IsDark)
	assert.Equal(t, types.ThemeModeDark, state.state.Settings.ThemeMode)

	_, err = svc.SetThemeMode(context.Background(), types.ThemeMode("sepia"), SchemeLight)
	assert.Error(t, err)
	assert.Equal(t, types.ThemeModeDark, state.state.Settings.ThemeMode)
}

func TestThemeService_UnknownConditionFallsBack(t *testing.T) {
	svc, err := NewThemeService(&stubThemeState{})
	require.NoError(t, err)
	assert.Equal(t, svc.Palette(types.ConditionClear, true), svc.Palette("volcanic", true))
}
