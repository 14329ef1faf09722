package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studenthub/internal/model"
	"studenthub/internal/service"
)

type AuthHandler struct {
	Auth *service.AuthService
}

type signinDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token   string         `json:"token"`
	Profile *model.Profile `json:"profile"`
}

// RegisterRoutes registers:
//
//	POST /auth/signup
//	POST /auth/signin
//	POST /auth/signout
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/auth")
	grp.POST("/signup", h.Signup)
	grp.POST("/signin", h.Signin)
	grp.POST("/signout", h.Signout)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.SignupInput
	if !bindJSON(c, &req) {
		return
	}
	p, token, err := h.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, Profile: p})
}

func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinDTO
	if !bindJSON(c, &req) {
		return
	}
	p, token, err := h.Auth.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, Profile: p})
}

// Signout is a no-op: tokens are stateless and the client drops its copy.
func (h *AuthHandler) Signout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
