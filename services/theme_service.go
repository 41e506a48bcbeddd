package services

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/NomadCrew/climapro-backend/types"
	"gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var themesYAML []byte

// SystemScheme is the color scheme the client's OS reports.
type SystemScheme string

const (
	SchemeLight SystemScheme = "light"
	SchemeDark  SystemScheme = "dark"
)

// ThemeState is what the theme service reads from and writes to the
// coordinator.
type ThemeState interface {
	State() types.WeatherState
	UpdateSetting(ctx context.Context, key string, value interface{}) (types.UserSettings, error)
}

// ThemeService picks the palette for the current weather condition and the
// user's theme mode.
type ThemeService struct {
	palettes map[types.WeatherCondition]types.ThemeColors
	state    ThemeState
}

// LoadThemes parses a condition -> palette catalog and checks it covers every
// condition.
func LoadThemes(data []byte) (map[types.WeatherCondition]types.ThemeColors, error) {
	var palettes map[types.WeatherCondition]types.ThemeColors
	if err := yaml.Unmarshal(data, &palettes); err != nil {
		return nil, fmt.Errorf("parse theme catalog: %w", err)
	}
	for _, c := range types.AllConditions {
		p, ok := palettes[c]
		if !ok {
			return nil, fmt.Errorf("theme catalog missing condition %q", c)
		}
		if len(p.Light.GradientColors) != 3 || len(p.Dark.GradientColors) != 3 {
			return nil, fmt.Errorf("theme %q needs three gradient colors per mode", c)
		}
	}
	return palettes, nil
}

// NewThemeService loads the embedded palette catalog.
func NewThemeService(state ThemeState) (*ThemeService, error) {
	palettes, err := LoadThemes(themesYAML)
	if err != nil {
		return nil, err
	}
	return &ThemeService{palettes: palettes, state: state}, nil
}

// IsDark resolves a theme mode against the system scheme.
func IsDark(mode types.ThemeMode, scheme SystemScheme) bool {
	if mode == types.ThemeModeSystem {
		return scheme == SchemeDark
	}
	return mode == types.ThemeModeDark
}

// Palette returns the palette for condition, falling back to clear.
func (s *ThemeService) Palette(condition types.WeatherCondition, dark bool) types.WeatherTheme {
	colors, ok := s.palettes[condition]
	if !ok {
		colors = s.palettes[types.ConditionClear]
	}
	if dark {
		return colors.Dark
	}
	return colors.Light
}

// Current resolves the theme from the coordinator's snapshot condition and
// theme mode setting.
func (s *ThemeService) Current(scheme SystemScheme) types.ResolvedTheme {
	state := s.state.State()
	condition := types.ConditionClear
	if state.Snapshot != nil && state.Snapshot.Current.Condition.IsValid() {
		condition = state.Snapshot.Current.Condition
	}
	mode := state.Settings.ThemeMode
	dark := IsDark(mode, scheme)
	return types.ResolvedTheme{
		Theme:     s.Palette(condition, dark),
		ThemeMode: mode,
		IsDark:    dark,
		Condition: condition,
	}
}

// SetThemeMode persists mode and returns the resolved theme.
func (s *ThemeService) SetThemeMode(ctx context.Context, mode types.ThemeMode, scheme SystemScheme) (types.ResolvedTheme, error) {
	if _, err := s.state.UpdateSetting(ctx, types.SettingThemeMode, string(mode)); err != nil {
		return types.ResolvedTheme{}, err
	}
	return s.Current(scheme), nil
}
