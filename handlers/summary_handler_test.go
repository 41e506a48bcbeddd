package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/middleware"
	"github.com/NomadCrew/climapro-backend/services"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSummaryRouter(coordinator Coordinator, summarizer Summarizer) *gin.Engine {
	h := NewSummaryHandler(coordinator, summarizer)
	r := newTestRouter()
	r.POST("/summary", h.SummaryHandler)
	return r
}

func TestSummaryHandler(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.coordinator.UpdateSetting(t.Context(), types.SettingTemperatureUnit, "fahrenheit")
	require.NoError(t, err)

	summarizer := new(MockSummarizer)
	summary := services.Summary{
		LocationID:  "new-york",
		Text:        "Warm and dry.",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	summarizer.On("Summarize", mock.Anything, mock.MatchedBy(func(s types.WeatherSnapshot) bool {
		return s.Location.ID == "new-york"
	}), types.Fahrenheit).Return(summary, nil).Once()

	r := setupSummaryRouter(env.coordinator, summarizer)
	w := doJSON(t, r, http.MethodPost, "/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, summary, decode[services.Summary](t, w))
	summarizer.AssertExpectations(t)
}

func TestSummaryHandler_Errors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("disabled", func(t *testing.T) {
		w := doJSON(t, setupSummaryRouter(env.coordinator, nil), http.MethodPost, "/summary", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		summarizer := new(MockSummarizer)
		summarizer.On("Summarize", mock.Anything, mock.Anything, types.Celsius).
			Return(services.Summary{}, apperrors.RateLimited("Too many summary requests")).Once()

		w := doJSON(t, setupSummaryRouter(env.coordinator, summarizer), http.MethodPost, "/summary", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "Too many summary requests", decode[middleware.ErrorResponse](t, w).Message)
	})

	t.Run("generation failed", func(t *testing.T) {
		summarizer := new(MockSummarizer)
		summarizer.On("Summarize", mock.Anything, mock.Anything, types.Celsius).
			Return(services.Summary{}, apperrors.GenerationFailed("summary", errors.New("quota"))).Once()

		w := doJSON(t, setupSummaryRouter(env.coordinator, summarizer), http.MethodPost, "/summary", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

type emptyCoordinator struct {
	Coordinator
}

func (emptyCoordinator) State() types.WeatherState {
	return types.WeatherState{Status: types.StatusIdle, Settings: types.DefaultSettings()}
}

func TestSummaryHandler_NoSnapshot(t *testing.T) {
	summarizer := new(MockSummarizer)
	w := doJSON(t, setupSummaryRouter(emptyCoordinator{}, summarizer), http.MethodPost, "/summary", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	summarizer.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)
}
