package handlers

import (
	"context"
	"net/http"

	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
)

type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
}

// HealthHandler reports the storage backend, Redis and coordinator status.
type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// LivenessCheck answers as long as the process can serve HTTP. It does not
// touch storage.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"status": types.HealthStatusUp})
}

// ReadinessCheck fails only when a component is down. A degraded service
// (Redis unreachable, coordinator still starting) keeps taking traffic.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	health := h.check(c)
	c.JSON(readinessCode(health.Status), health)
}

func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.check(c))
}

// ComponentHealth returns one component ("storage", "redis", "coordinator").
func (h *HealthHandler) ComponentHealth(c *gin.Context) {
	name := c.Param("component")
	component, ok := h.check(c).Components[name]
	if !ok {
		_ = c.Error(apperrors.NotFound("Health component", name))
		return
	}
	c.JSON(readinessCode(component.Status), component)
}

func (h *HealthHandler) check(c *gin.Context) types.HealthCheck {
	c.Header("Cache-Control", "no-store")
	return h.checker.CheckHealth(c.Request.Context())
}

func readinessCode(status types.HealthStatus) int {
	if status == types.HealthStatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
