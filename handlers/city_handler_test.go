package handlers

import (
	"net/http"
	"testing"

	"github.com/NomadCrew/climapro-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCityHandler(t *testing.T) {
	env := newTestEnv(t)
	h := NewCityHandler(env.source)
	r := newTestRouter()
	r.GET("/cities", h.ListCitiesHandler)
	r.GET("/cities/search", h.SearchCitiesHandler)
	r.GET("/cities/:id", h.GetCityHandler)

	w := doJSON(t, r, http.MethodGet, "/cities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.CityLocation](t, w), len(env.source.GetAllCities()))

	w = doJSON(t, r, http.MethodGet, "/cities/search?q=tok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]types.CityLocation](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "tokyo", found[0].ID)

	w = doJSON(t, r, http.MethodGet, "/cities/search?q=t", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/cities/dubai", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dubai", decode[types.CityLocation](t, w).Name)

	w = doJSON(t, r, http.MethodGet, "/cities/atlantis", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
