package middleware

import (
	"github.com/NomadCrew/climapro-backend/config"
	"github.com/gin-gonic/gin"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// apiHeaders apply to every response. Responses are JSON or the state
// stream, never documents.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-site"},
}

// SecurityHeadersMiddleware sets apiHeaders before the handler runs, so error
// responses carry them too. HSTS is only sent in production.
func SecurityHeadersMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	production := cfg.Environment == config.EnvProduction
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range apiHeaders {
			h.Set(kv[0], kv[1])
		}
		if production {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}
