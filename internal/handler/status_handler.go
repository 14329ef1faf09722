package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studenthub/internal/location"
	"studenthub/internal/model"
	"studenthub/internal/service"
)

type StatusHandler struct {
	Listings       *service.ListingService
	StorageEnabled bool
}

func (h *StatusHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.GetStatus)
	rg.GET("/locations", h.GetLocations)
}

// GET /api/status reports where the last listing read came from.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	st := h.Listings.Status()
	c.JSON(http.StatusOK, gin.H{
		"connection": st,
		"offline":    st.Offline(),
		"storage":    h.StorageEnabled,
		"kinds":      model.Kinds,
	})
}

// GET /api/locations[?q=name]
func (h *StatusHandler) GetLocations(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		name, ok := location.Suggest(q)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching location"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"suggestion": name})
		return
	}
	c.JSON(http.StatusOK, location.Known())
}
