package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studenthub/internal/middleware"
	"studenthub/internal/service"
)

// ProfileHandler serves the signed-in user's profile and the public link cards.
type ProfileHandler struct {
	Profiles *service.ProfileService
}

// RegisterRoutes registers:
//
//	GET    /profile
//	PUT    /profile
//	GET    /cards?user=...
//	POST   /cards
//	DELETE /cards/:id
func (h *ProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cards", h.ListCards)

	auth := rg.Group("", middleware.RequireAuth())
	auth.GET("/profile", h.GetProfile)
	auth.PUT("/profile", h.UpdateProfile)
	auth.POST("/cards", h.AddCard)
	auth.DELETE("/cards/:id", h.DeleteCard)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	p, err := h.Profiles.Get(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Profiles.Update(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) ListCards(c *gin.Context) {
	cards, err := h.Profiles.ListCards(c.Request.Context(), c.Query("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *ProfileHandler) AddCard(c *gin.Context) {
	var req service.CardInput
	if !bindJSON(c, &req) {
		return
	}
	card, err := h.Profiles.AddCard(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *ProfileHandler) DeleteCard(c *gin.Context) {
	if err := h.Profiles.DeleteCard(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
