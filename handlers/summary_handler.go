package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/gin-gonic/gin"
)

// SummaryHandler serves AI summaries of the current snapshot.
type SummaryHandler struct {
	coordinator Coordinator
	summarizer  Summarizer
}

// NewSummaryHandler builds the handler. A nil summarizer answers every
// request with 503.
func NewSummaryHandler(coordinator Coordinator, summarizer Summarizer) *SummaryHandler {
	return &SummaryHandler{coordinator: coordinator, summarizer: summarizer}
}

func (h *SummaryHandler) SummaryHandler(c *gin.Context) {
	if h.summarizer == nil {
		_ = c.Error(apperrors.ServiceUnavailable("Weather summaries are disabled"))
		return
	}
	state := h.coordinator.State()
	if state.Snapshot == nil {
		_ = c.Error(apperrors.ValidationFailed("no weather loaded", "fetch a city before requesting a summary"))
		return
	}
	summary, err := h.summarizer.Summarize(c.Request.Context(), *state.Snapshot, state.Settings.TemperatureUnit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
