package handlers

import (
	"context"

	"github.com/NomadCrew/climapro-backend/services"
	"github.com/NomadCrew/climapro-backend/types"
)

// Coordinator is the coordinator surface the HTTP handlers drive.
type Coordinator interface {
	State() types.WeatherState
	FetchWeatherForCity(ctx context.Context, cityID string) (types.WeatherState, error)
	FetchWeatherForLocation(ctx context.Context) (types.WeatherState, error)
	Refresh(ctx context.Context) (types.WeatherState, error)
	AddFavorite(ctx context.Context, city types.CityLocation) []types.FavoriteCity
	RemoveFavorite(ctx context.Context, cityID string) []types.FavoriteCity
	ReorderFavorites(ctx context.Context, fromIndex, toIndex int) ([]types.FavoriteCity, error)
	IsFavorite(cityID string) bool
	AddRecentSearch(ctx context.Context, city types.CityLocation) []types.CityLocation
	ClearRecentSearches(ctx context.Context)
	UpdateSettings(ctx context.Context, patch types.SettingsPatch) (types.UserSettings, error)
	UpdateSetting(ctx context.Context, key string, value interface{}) (types.UserSettings, error)
	FormatTemperature(celsius float64) string
	FormatSpeed(kmh float64) string
}

// CityCatalog resolves and searches the known cities.
type CityCatalog interface {
	GetAllCities() []types.CityLocation
	SearchCities(query string) []types.CityLocation
	GetCityByID(id string) (types.CityLocation, bool)
}

// LocationReporter accepts positions reported by the client.
type LocationReporter interface {
	Report(granted bool, coords *types.Coordinates) error
}

type ThemeResolver interface {
	Current(scheme services.SystemScheme) types.ResolvedTheme
	SetThemeMode(ctx context.Context, mode types.ThemeMode, scheme services.SystemScheme) (types.ResolvedTheme, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, snapshot types.WeatherSnapshot, unit types.TemperatureUnit) (services.Summary, error)
}

var (
	_ Coordinator      = (*services.WeatherCoordinator)(nil)
	_ CityCatalog      = (*services.WeatherSource)(nil)
	_ LocationReporter = (*services.ClientLocationProvider)(nil)
	_ ThemeResolver    = (*services.ThemeService)(nil)
	_ Summarizer       = (*services.SummaryService)(nil)
)
