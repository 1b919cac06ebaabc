package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispenser-tracker-backend/internal/dispenser"
	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
)

// ListAssignments handles GET /api/technician-assignments.
func (h *Handler) ListAssignments(c *gin.Context) {
	out, err := h.manager.ListAssignments(c.Request.Context(), store.AssignmentFilter{
		TechnicianUsername: c.Query("technician"),
		Status:             model.AssignmentStatus(c.Query("status")),
		DispenserID:        c.Query("dispenser_id"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateAssignment handles POST /api/technician-assignments.
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.manager.CreateAssignment(c.Request.Context(), dispenser.AssignmentInput{
		DispenserID:        req.DispenserID,
		TechnicianUsername: req.TechnicianUsername,
		AssignedBy:         req.AssignedBy,
		VisitDate:          h.date("visit_date", req.VisitDate),
		TaskType:           req.TaskType,
		Notes:              req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// CompleteAssignment handles POST /api/technician-assignments/:id/complete.
func (h *Handler) CompleteAssignment(c *gin.Context) {
	var req completeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	in := dispenser.CompletionInput{Notes: req.Notes}
	if req.Refill != nil {
		r := h.refillInput(*req.Refill)
		in.Refill = &r
	}

	a, entry, err := h.manager.CompleteAssignment(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": a, "refill": entry})
}

// DeleteAssignment handles DELETE /api/technician-assignments/:id.
func (h *Handler) DeleteAssignment(c *gin.Context) {
	if err := h.manager.DeleteAssignment(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
