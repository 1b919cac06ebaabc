package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/dispenser"
)

// statusFor maps a manager error onto an HTTP status.
func statusFor(err error) int {
	var de *dispenser.Error
	if errors.As(err, &de) && de.Code == dispenser.CodeClientReassignment {
		return http.StatusForbidden
	}
	switch {
	case errors.Is(err, dispenser.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dispenser.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, dispenser.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	var de *dispenser.Error
	if errors.As(err, &de) {
		c.AbortWithStatusJSON(status, gin.H{
			"error": de.Message,
			"code":  de.Code,
			"field": de.Field,
			"value": de.Value,
		})
		return
	}

	h.log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
