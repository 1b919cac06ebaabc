package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispenser-tracker-backend/internal/model"
)

func (h *Handler) ListClients(c *gin.Context) {
	out, err := h.manager.ListClients(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetClient(c *gin.Context) {
	cl, err := h.manager.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cl, err := h.manager.CreateClient(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cl)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cl, err := h.manager.UpdateClient(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (h *Handler) DeleteClient(c *gin.Context) {
	if err := h.manager.DeleteClient(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClientSummary is one row of GET /api/clients/summary.
type ClientSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Installed  int64  `json:"installed"`
	Assigned   int64  `json:"assigned"`
	TotalUnits int64  `json:"total_units"`
}

// GetClientSummary counts instances per client and status in one query.
func (h *Handler) GetClientSummary(c *gin.Context) {
	db := h.store.DB().WithContext(c.Request.Context())

	var clients []model.Client
	if err := db.Order("name").Find(&clients).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve clients"})
		return
	}

	type aggRow struct {
		ClientID string
		Status   string
		Total    int64
	}
	var aggs []aggRow
	if err := db.
		Model(&model.MachineInstance{}).
		Select("client_id AS client_id, status AS status, COUNT(*) AS total").
		Where("client_id IS NOT NULL").
		Group("client_id, status").
		Scan(&aggs).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate dispensers"})
		return
	}

	byClient := make(map[string]*ClientSummary, len(clients))
	out := make([]ClientSummary, len(clients))
	for i, cl := range clients {
		out[i] = ClientSummary{ID: cl.ID, Name: cl.Name}
		byClient[cl.ID] = &out[i]
	}
	for _, a := range aggs {
		s, ok := byClient[a.ClientID]
		if !ok {
			continue
		}
		switch model.InstanceStatus(a.Status) {
		case model.StatusInstalled:
			s.Installed += a.Total
		case model.StatusAssigned:
			s.Assigned += a.Total
		}
		s.TotalUnits += a.Total
	}
	c.JSON(http.StatusOK, out)
}
