package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
)

// FavoritesHandler serves favorites and recent searches.
type FavoritesHandler struct {
	coordinator Coordinator
	catalog     CityCatalog
}

func NewFavoritesHandler(coordinator Coordinator, catalog CityCatalog) *FavoritesHandler {
	return &FavoritesHandler{coordinator: coordinator, catalog: catalog}
}

// CityRequest names a city either by catalog id or in full.
type CityRequest struct {
	CityID string              `json:"cityId"`
	City   *types.CityLocation `json:"city"`
}

// ReorderRequest is the body of PUT /favorites/order.
type ReorderRequest struct {
	FromIndex *int `json:"fromIndex" binding:"required"`
	ToIndex   *int `json:"toIndex" binding:"required"`
}

func (h *FavoritesHandler) resolveCity(c *gin.Context) (types.CityLocation, bool) {
	var req CityRequest
	if !bindJSONOrError(c, &req) {
		return types.CityLocation{}, false
	}
	if req.City != nil {
		if req.City.ID == "" || req.City.Name == "" {
			_ = c.Error(apperrors.ValidationFailed("invalid city", "city id and name are required"))
			return types.CityLocation{}, false
		}
		if err := req.City.Coordinates.Validate(); err != nil {
			_ = c.Error(apperrors.ValidationFailed("invalid city", err.Error()))
			return types.CityLocation{}, false
		}
		return *req.City, true
	}
	if req.CityID == "" {
		_ = c.Error(apperrors.ValidationFailed("invalid city", "cityId or city is required"))
		return types.CityLocation{}, false
	}
	city, ok := h.catalog.GetCityByID(req.CityID)
	if !ok {
		_ = c.Error(apperrors.NotFound("City", req.CityID))
		return types.CityLocation{}, false
	}
	return city, true
}

func (h *FavoritesHandler) ListFavoritesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.State().Favorites)
}

// AddFavoriteHandler adds a city; adding a favorite twice is a no-op.
func (h *FavoritesHandler) AddFavoriteHandler(c *gin.Context) {
	city, ok := h.resolveCity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.coordinator.AddFavorite(c.Request.Context(), city))
}

func (h *FavoritesHandler) RemoveFavoriteHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.RemoveFavorite(c.Request.Context(), c.Param("id")))
}

func (h *FavoritesHandler) ReorderFavoritesHandler(c *gin.Context) {
	var req ReorderRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	favorites, err := h.coordinator.ReorderFavorites(c.Request.Context(), *req.FromIndex, *req.ToIndex)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, favorites)
}

func (h *FavoritesHandler) FavoriteStatusHandler(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"cityId": id, "isFavorite": h.coordinator.IsFavorite(id)})
}

func (h *FavoritesHandler) ListRecentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.State().RecentSearches)
}

func (h *FavoritesHandler) AddRecentHandler(c *gin.Context) {
	city, ok := h.resolveCity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.coordinator.AddRecentSearch(c.Request.Context(), city))
}

func (h *FavoritesHandler) ClearRecentsHandler(c *gin.Context) {
	h.coordinator.ClearRecentSearches(c.Request.Context())
	c.Status(http.StatusNoContent)
}
