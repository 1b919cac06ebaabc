package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey hands browsers the application server key they need to
// subscribe to low-level alerts. Alerts are off when no key pair is configured.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	key := ""
	if h.webpush != nil {
		key = h.webpush.VAPIDPublicKey
	}
	if key == "" {
		h.log.Debug("vapid public key requested but push alerts are disabled")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push alerts are not enabled"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, gin.H{"public_key": key})
}
