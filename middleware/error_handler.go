package middleware

import (
	"net/http"
	"strconv"

	"github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON envelope every failed request is answered with.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler renders the last error attached to the gin context. Handlers
// report failures with c.Error and return without writing a body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		err := last.Err

		if appErr, ok := errors.As(err); ok {
			status := appErr.GetHTTPStatus()
			logger.LogHTTPError(c, err, status, string(appErr.Type)+" error")

			response := ErrorResponse{
				Type:    string(appErr.Type),
				Message: appErr.Message,
				Code:    strconv.Itoa(status),
			}
			// Details are safe to show for client mistakes; everything else
			// only in debug mode.
			if appErr.Detail != "" && (gin.IsDebugging() ||
				appErr.Type == errors.ValidationError ||
				appErr.Type == errors.NotFoundError) {
				response.Details = appErr.Detail
			}
			c.JSON(status, response)
			return
		}

		if last.Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")
			response := ErrorResponse{
				Type:    string(errors.ValidationError),
				Message: "Failed to bind request",
				Code:    strconv.Itoa(http.StatusBadRequest),
			}
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(http.StatusBadRequest, response)
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")
		response := ErrorResponse{
			Type:    string(errors.ServerError),
			Message: "Internal Server Error",
			Code:    strconv.Itoa(http.StatusInternalServerError),
		}
		if gin.IsDebugging() {
			response.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, response)
	}
}
