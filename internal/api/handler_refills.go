package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispenser-tracker-backend/internal/model"
)

// RecordRefill handles POST /api/dispensers/:id/refill.
func (h *Handler) RecordRefill(c *gin.Context) {
	var req refillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.manager.RecordRefill(c.Request.Context(), c.Param("id"), h.refillInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListRefillLogs handles GET /api/refill-logs. The optional since parameter
// must be RFC3339.
func (h *Handler) ListRefillLogs(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'since' timestamp format. Use RFC3339."})
			return
		}
		since = t
	}

	logs, err := h.store.ListRefillLogs(c.Request.Context(), c.Query("dispenser_id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]model.RefillLog, 0, len(logs))
	for _, l := range logs {
		if !since.IsZero() && l.Timestamp.Before(since) {
			continue
		}
		out = append(out, l)
	}
	c.JSON(http.StatusOK, out)
}
