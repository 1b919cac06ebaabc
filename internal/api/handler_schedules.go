package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListSchedules(c *gin.Context) {
	out, err := h.manager.ListSchedules(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	sch, err := h.manager.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sch)
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sch, err := h.manager.CreateSchedule(c.Request.Context(), h.scheduleInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sch)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sch, err := h.manager.UpdateSchedule(c.Request.Context(), c.Param("id"), h.scheduleInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sch)
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	if err := h.manager.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
