package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispenser-tracker-backend/internal/dispenser"
	"dispenser-tracker-backend/internal/model"
)

// ListDispensers handles GET /api/dispensers.
func (h *Handler) ListDispensers(c *gin.Context) {
	f := dispenser.ListFilter{
		Kind:     c.Query("kind"),
		Status:   model.InstanceStatus(c.Query("status")),
		ClientID: c.Query("client_id"),
	}
	out, err := h.manager.ListDispensers(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []dispenser.Dispenser{}
	}
	c.JSON(http.StatusOK, out)
}

// GetDispenser handles GET /api/dispensers/:id.
func (h *Handler) GetDispenser(c *gin.Context) {
	d, err := h.manager.GetDispenser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDispenser handles POST /api/dispensers.
func (h *Handler) CreateDispenser(c *gin.Context) {
	var req dispenserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.manager.CreateDispenser(c.Request.Context(), h.dispenserInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// UpdateDispenser handles PUT /api/dispensers/:id.
func (h *Handler) UpdateDispenser(c *gin.Context) {
	var req dispenserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.manager.UpdateDispenser(c.Request.Context(), c.Param("id"), h.dispenserInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDispenser handles DELETE /api/dispensers/:id.
func (h *Handler) DeleteDispenser(c *gin.Context) {
	if err := h.manager.DeleteDispenser(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type assignScheduleRequest struct {
	ScheduleID string `json:"schedule_id"`
}

// AssignSchedule handles POST /api/dispensers/:id/assign-schedule.
func (h *Handler) AssignSchedule(c *gin.Context) {
	var req assignScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inst, err := h.manager.AssignSchedule(c.Request.Context(), c.Param("id"), req.ScheduleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispenser.Dispenser{Instance: inst})
}

// GetUsageCalculation handles GET /api/dispensers/:id/usage-calculation.
func (h *Handler) GetUsageCalculation(c *gin.Context) {
	p, err := h.manager.ComputeUsageProjection(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
