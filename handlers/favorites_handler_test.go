package handlers

import (
	"net/http"
	"testing"

	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFavoritesRouter(env *testEnv) *gin.Engine {
	h := NewFavoritesHandler(env.coordinator, env.source)
	r := newTestRouter()
	r.GET("/favorites", h.ListFavoritesHandler)
	r.POST("/favorites", h.AddFavoriteHandler)
	r.DELETE("/favorites/:id", h.RemoveFavoriteHandler)
	r.PUT("/favorites/order", h.ReorderFavoritesHandler)
	r.GET("/favorites/:id/status", h.FavoriteStatusHandler)
	r.GET("/recents", h.ListRecentsHandler)
	r.POST("/recents", h.AddRecentHandler)
	r.DELETE("/recents", h.ClearRecentsHandler)
	return r
}

func favoriteIDs(favorites []types.FavoriteCity) []string {
	ids := make([]string, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestFavoritesHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	r := setupFavoritesRouter(env)

	for _, id := range []string{"london", "paris", "tokyo"} {
		w := doJSON(t, r, http.MethodPost, "/favorites", CityRequest{CityID: id})
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Adding an existing favorite changes nothing.
	w := doJSON(t, r, http.MethodPost, "/favorites", CityRequest{CityID: "paris"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"london", "paris", "tokyo"}, favoriteIDs(decode[[]types.FavoriteCity](t, w)))

	w = doJSON(t, r, http.MethodPut, "/favorites/order", gin.H{"fromIndex": 2, "toIndex": 0})
	require.Equal(t, http.StatusOK, w.Code)
	reordered := decode[[]types.FavoriteCity](t, w)
	assert.Equal(t, []string{"tokyo", "london", "paris"}, favoriteIDs(reordered))
	for i, f := range reordered {
		assert.Equal(t, i, f.Order)
	}

	w = doJSON(t, r, http.MethodGet, "/favorites/paris/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, w)["isFavorite"])

	w = doJSON(t, r, http.MethodDelete, "/favorites/paris", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"tokyo", "london"}, favoriteIDs(decode[[]types.FavoriteCity](t, w)))

	w = doJSON(t, r, http.MethodGet, "/favorites", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.FavoriteCity](t, w), 2)
	assert.False(t, env.coordinator.IsFavorite("paris"))
}

func TestFavoritesHandler_AddValidation(t *testing.T) {
	env := newTestEnv(t)
	r := setupFavoritesRouter(env)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"empty body", gin.H{}, http.StatusBadRequest},
		{"unknown id", CityRequest{CityID: "atlantis"}, http.StatusNotFound},
		{"city without name", CityRequest{City: &types.CityLocation{ID: "x"}}, http.StatusBadRequest},
		{"city with bad coordinates", CityRequest{City: &types.CityLocation{
			ID: "x", Name: "X", Coordinates: types.Coordinates{Latitude: 0, Longitude: 200},
		}}, http.StatusBadRequest},
		{"full city", CityRequest{City: &types.CityLocation{
			ID: "custom-1", Name: "Somewhere", Coordinates: types.Coordinates{Latitude: 1, Longitude: 2},
		}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/favorites", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
	assert.True(t, env.coordinator.IsFavorite("custom-1"))
}

func TestFavoritesHandler_ReorderRejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	r := setupFavoritesRouter(env)

	doJSON(t, r, http.MethodPost, "/favorites", CityRequest{CityID: "london"})
	before := env.coordinator.State().Version

	w := doJSON(t, r, http.MethodPut, "/favorites/order", gin.H{"fromIndex": 0, "toIndex": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, env.coordinator.State().Version)

	w = doJSON(t, r, http.MethodPut, "/favorites/order", gin.H{"fromIndex": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavoritesHandler_Recents(t *testing.T) {
	env := newTestEnv(t)
	r := setupFavoritesRouter(env)

	doJSON(t, r, http.MethodPost, "/recents", CityRequest{CityID: "london"})
	doJSON(t, r, http.MethodPost, "/recents", CityRequest{CityID: "paris"})
	w := doJSON(t, r, http.MethodPost, "/recents", CityRequest{CityID: "london"})
	require.Equal(t, http.StatusOK, w.Code)

	recents := decode[[]types.CityLocation](t, w)
	require.Len(t, recents, 2)
	assert.Equal(t, "london", recents[0].ID)
	assert.Equal(t, "paris", recents[1].ID)

	w = doJSON(t, r, http.MethodDelete, "/recents", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/recents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]types.CityLocation](t, w))
}
