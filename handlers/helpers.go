package handlers

import (
	apperrors "github.com/NomadCrew/climapro-backend/errors"
	"github.com/gin-gonic/gin"
)

func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request payload", err.Error()))
		return false
	}
	return true
}
