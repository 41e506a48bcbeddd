package handlers

import (
	"net/http"

	"github.com/NomadCrew/climapro-backend/config"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/gin-gonic/gin"
)

// DebugConfigHandler renders the effective configuration as YAML with
// credentials masked. current is called per request so hot reloads show up.
func DebugConfigHandler(current func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := current().DumpYAML()
		if err != nil {
			logger.GetLogger().Errorw("Failed to render config", "error", err)
			_ = c.Error(err)
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", out)
	}
}
