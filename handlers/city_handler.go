package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/gin-gonic/gin"
)

type CityHandler struct {
	catalog CityCatalog
}

func NewCityHandler(catalog CityCatalog) *CityHandler {
	return &CityHandler{catalog: catalog}
}

func (h *CityHandler) ListCitiesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.GetAllCities())
}

// SearchCitiesHandler matches ?q= against name, country and region. Short
// queries return an empty list.
func (h *CityHandler) SearchCitiesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.SearchCities(c.Query("q")))
}

func (h *CityHandler) GetCityHandler(c *gin.Context) {
	id := c.Param("id")
	city, ok := h.catalog.GetCityByID(id)
	if !ok {
		_ = c.Error(apperrors.NotFound("City", id))
		return
	}
	c.JSON(http.StatusOK, city)
}
