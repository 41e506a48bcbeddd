package repository

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/types"
)

// GetFavorites returns the favorites sorted by order, or an empty slice.
func (r *WeatherRepository) GetFavorites(ctx context.Context) []types.FavoriteCity {
	var favorites []types.FavoriteCity
	if !r.readJSON(ctx, KeyFavorites, &favorites) || favorites == nil {
		return []types.FavoriteCity{}
	}
	sort.SliceStable(favorites, func(i, j int) bool {
		return favorites[i].Order < favorites[j].Order
	})
	return favorites
}

// AddFavorite appends city with order = len(favorites), renumbering the
// existing entries first. Adding a city that is already a favorite leaves the
// list untouched.
func (r *WeatherRepository) AddFavorite(ctx context.Context, city types.CityLocation) []types.FavoriteCity {
	r.mu.Lock()
	defer r.mu.Unlock()

	favorites := r.GetFavorites(ctx)
	for _, f := range favorites {
		if f.ID == city.ID {
			return favorites
		}
	}

	renumber(favorites)
	favorites = append(favorites, types.FavoriteCity{
		CityLocation: city,
		Order:        len(favorites),
		AddedAt:      r.clock().UTC(),
	})
	r.writeJSON(ctx, KeyFavorites, favorites)
	return favorites
}

func (r *WeatherRepository) RemoveFavorite(ctx context.Context, cityID string) []types.FavoriteCity {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.GetFavorites(ctx)
	favorites := make([]types.FavoriteCity, 0, len(current))
	for _, f := range current {
		if f.ID != cityID {
			favorites = append(favorites, f)
		}
	}
	renumber(favorites)
	r.writeJSON(ctx, KeyFavorites, favorites)
	return favorites
}

// ReorderFavorites moves the favorite at fromIndex to toIndex: the element
// is removed first and then inserted, shifting the ones in between. Both
// indices must address the current list.
func (r *WeatherRepository) ReorderFavorites(ctx context.Context, fromIndex, toIndex int) ([]types.FavoriteCity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	favorites := r.GetFavorites(ctx)
	n := len(favorites)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return favorites, apperrors.ValidationFailed(
			"invalid reorder indices",
			fmt.Sprintf("fromIndex=%d toIndex=%d must be within [0, %d)", fromIndex, toIndex, n),
		)
	}

	moved := favorites[fromIndex]
	favorites = append(favorites[:fromIndex], favorites[fromIndex+1:]...)
	favorites = append(favorites[:toIndex], append([]types.FavoriteCity{moved}, favorites[toIndex:]...)...)
	renumber(favorites)

	r.writeJSON(ctx, KeyFavorites, favorites)
	return favorites, nil
}

func (r *WeatherRepository) IsFavorite(ctx context.Context, cityID string) bool {
	for _, f := range r.GetFavorites(ctx) {
		if f.ID == cityID {
			return true
		}
	}
	return false
}

func renumber(favorites []types.FavoriteCity) {
	for i := range favorites {
		favorites[i].Order = i
	}
}
