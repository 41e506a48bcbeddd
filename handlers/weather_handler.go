package handlers

import (
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
)

// WeatherHandler serves the coordinator state and the fetch intents.
type WeatherHandler struct {
	coordinator Coordinator
	location    LocationReporter
}

// NewWeatherHandler builds the handler. location may be nil when positions
// come from static configuration.
func NewWeatherHandler(coordinator Coordinator, location LocationReporter) *WeatherHandler {
	return &WeatherHandler{coordinator: coordinator, location: location}
}

// GetStateHandler returns the current coordinator state.
func (h *WeatherHandler) GetStateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.State())
}

// FetchCityHandler fetches the weather for a catalog city. A failed fetch
// answers with the error; the state keeps the previous snapshot.
func (h *WeatherHandler) FetchCityHandler(c *gin.Context) {
	state, err := h.coordinator.FetchWeatherForCity(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// LocationReport is the optional body of POST /weather/location.
type LocationReport struct {
	PermissionGranted *bool              `json:"permissionGranted"`
	Coordinates       *types.Coordinates `json:"coordinates"`
}

// FetchLocationHandler fetches the weather for the device position. A body,
// when present, is first reported to the client location provider.
func (h *WeatherHandler) FetchLocationHandler(c *gin.Context) {
	if c.Request.ContentLength > 0 {
		var report LocationReport
		if !bindJSONOrError(c, &report) {
			return
		}
		if h.location != nil {
			granted := report.Coordinates != nil
			if report.PermissionGranted != nil {
				granted = *report.PermissionGranted
			}
			if err := h.location.Report(granted, report.Coordinates); err != nil {
				_ = c.Error(apperrors.ValidationFailed("invalid coordinates", err.Error()))
				return
			}
		}
	}

	state, err := h.coordinator.FetchWeatherForLocation(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *WeatherHandler) RefreshHandler(c *gin.Context) {
	state, err := h.coordinator.Refresh(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// FormatTemperatureHandler renders ?c= in the user's unit.
func (h *WeatherHandler) FormatTemperatureHandler(c *gin.Context) {
	value, ok := floatQuery(c, "c")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"formatted": h.coordinator.FormatTemperature(value)})
}

// FormatSpeedHandler renders ?kmh= in the user's unit.
func (h *WeatherHandler) FormatSpeedHandler(c *gin.Context) {
	value, ok := floatQuery(c, "kmh")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"formatted": h.coordinator.FormatSpeed(value)})
}

func floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		_ = c.Error(apperrors.ValidationFailed("invalid query parameter", name+" must be a finite number"))
		return 0, false
	}
	return value, true
}
