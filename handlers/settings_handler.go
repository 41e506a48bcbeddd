package handlers

import (
	"net/http"
	"time"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/services"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
)

// ClientConfig is what clients need to mirror server-side behavior.
type ClientConfig struct {
	SearchDebounceMs int64 `json:"searchDebounceMs"`
	MinQueryLength   int   `json:"minQueryLength"`
	RecentLimit      int   `json:"recentLimit"`
}

func NewClientConfig(searchDebounce time.Duration, minQueryLength, recentLimit int) ClientConfig {
	return ClientConfig{
		SearchDebounceMs: searchDebounce.Milliseconds(),
		MinQueryLength:   minQueryLength,
		RecentLimit:      recentLimit,
	}
}

// SettingsHandler serves settings, theme resolution and client config.
type SettingsHandler struct {
	coordinator  Coordinator
	theme        ThemeResolver
	clientConfig ClientConfig
}

func NewSettingsHandler(coordinator Coordinator, theme ThemeResolver, clientConfig ClientConfig) *SettingsHandler {
	return &SettingsHandler{coordinator: coordinator, theme: theme, clientConfig: clientConfig}
}

func (h *SettingsHandler) GetSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.State().Settings)
}

// PatchSettingsHandler merges the given fields over the current settings.
func (h *SettingsHandler) PatchSettingsHandler(c *gin.Context) {
	var patch types.SettingsPatch
	if !bindJSONOrError(c, &patch) {
		return
	}
	settings, err := h.coordinator.UpdateSettings(c.Request.Context(), patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SettingValue is the body of PUT /settings/:key.
type SettingValue struct {
	Value interface{} `json:"value"`
}

func (h *SettingsHandler) UpdateSettingHandler(c *gin.Context) {
	var body SettingValue
	if !bindJSONOrError(c, &body) {
		return
	}
	settings, err := h.coordinator.UpdateSetting(c.Request.Context(), c.Param("key"), body.Value)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func systemScheme(c *gin.Context) (services.SystemScheme, bool) {
	switch scheme := services.SystemScheme(c.DefaultQuery("systemScheme", string(services.SchemeLight))); scheme {
	case services.SchemeLight, services.SchemeDark:
		return scheme, true
	default:
		_ = c.Error(apperrors.ValidationFailed("invalid systemScheme", "systemScheme must be light or dark"))
		return "", false
	}
}

// GetThemeHandler resolves the palette for ?systemScheme=light|dark.
func (h *SettingsHandler) GetThemeHandler(c *gin.Context) {
	scheme, ok := systemScheme(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.theme.Current(scheme))
}

// ThemeModeRequest is the body of PUT /theme/mode.
type ThemeModeRequest struct {
	Mode types.ThemeMode `json:"mode" binding:"required"`
}

func (h *SettingsHandler) SetThemeModeHandler(c *gin.Context) {
	scheme, ok := systemScheme(c)
	if !ok {
		return
	}
	var req ThemeModeRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	resolved, err := h.theme.SetThemeMode(c.Request.Context(), req.Mode, scheme)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

func (h *SettingsHandler) ClientConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.clientConfig)
}
