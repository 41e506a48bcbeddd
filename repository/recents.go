package repository

import (
	"context"

	"github.com/NomadCrew/climapro-backend/types"
)

// GetRecentSearches returns the recent searches, most recent first.
func (r *WeatherRepository) GetRecentSearches(ctx context.Context) []types.CityLocation {
	var searches []types.CityLocation
	if !r.readJSON(ctx, KeyRecentSearches, &searches) || searches == nil {
		return []types.CityLocation{}
	}
	return searches
}

// AddRecentSearch moves city to the front, dropping any older entry with the
// same id and trimming the list to the configured limit.
func (r *WeatherRepository) AddRecentSearch(ctx context.Context, city types.CityLocation) []types.CityLocation {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.GetRecentSearches(ctx)
	updated := make([]types.CityLocation, 0, len(current)+1)
	updated = append(updated, city)
	for _, c := range current {
		if c.ID != city.ID {
			updated = append(updated, c)
		}
	}
	if len(updated) > r.recentLimit {
		updated = updated[:r.recentLimit]
	}

	r.writeJSON(ctx, KeyRecentSearches, updated)
	return updated
}

func (r *WeatherRepository) ClearRecentSearches(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(ctx, KeyRecentSearches)
}
