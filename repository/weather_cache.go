package repository

import (
	"context"

	"github.com/NomadCrew/climapro-backend/types"
)

// GetCachedWeather returns the cached snapshot for cityID while it is younger
// than the freshness window. Stale entries are left in place and reported as
// absent.
func (r *WeatherRepository) GetCachedWeather(ctx context.Context, cityID string) (*types.WeatherSnapshot, bool) {
	var snapshot types.WeatherSnapshot
	if !r.readJSON(ctx, CachedWeatherKey(cityID), &snapshot) {
		return nil, false
	}
	if r.clock().Sub(snapshot.LastUpdated) >= r.FreshnessWindow() {
		return nil, false
	}
	return &snapshot, true
}

// CacheWeather overwrites the cached snapshot for the snapshot's location.
func (r *WeatherRepository) CacheWeather(ctx context.Context, snapshot types.WeatherSnapshot) {
	r.writeJSON(ctx, CachedWeatherKey(snapshot.Location.ID), snapshot)
}

func (r *WeatherRepository) GetLastCity(ctx context.Context) (*types.CityLocation, bool) {
	var city types.CityLocation
	if !r.readJSON(ctx, KeyLastCity, &city) || city.ID == "" {
		return nil, false
	}
	return &city, true
}

func (r *WeatherRepository) SetLastCity(ctx context.Context, city types.CityLocation) {
	r.writeJSON(ctx, KeyLastCity, city)
}
