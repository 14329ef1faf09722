package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studenthub/internal/browse"
	"studenthub/internal/location"
	"studenthub/internal/session"
)

const sessionKey = "session"

// BrowseHandler exposes the per-visitor location selection and listing controllers.
type BrowseHandler struct {
	Sessions     *session.Store
	SecureCookie bool
	CookieMaxAge int
}

// RegisterRoutes registers:
//
//	GET  /session/location
//	PUT  /session/location
//	GET  /browse/:kind
//	POST /browse/:kind/page
//	POST /browse/:kind/search
//	POST /browse/:kind/filter
//	POST /browse/:kind/retry
func (h *BrowseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("", h.attachSession)
	grp.GET("/session/location", h.GetLocation)
	grp.PUT("/session/location", h.SetLocation)
	grp.GET("/browse/:kind", h.GetState)
	grp.POST("/browse/:kind/page", h.SetPage)
	grp.POST("/browse/:kind/search", h.SetSearch)
	grp.POST("/browse/:kind/filter", h.SetFilter)
	grp.POST("/browse/:kind/retry", h.Retry)
}

// attachSession resolves the visitor's session from the cookie, issuing a new
// cookie when the old one is missing or expired.
func (h *BrowseHandler) attachSession(c *gin.Context) {
	id, _ := c.Cookie(session.CookieName)
	s, created := h.Sessions.GetOrCreate(id)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(session.CookieName, s.ID, h.CookieMaxAge, "/", "", h.SecureCookie, true)
	}
	c.Set(sessionKey, s)
	c.Next()
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

type locationResponse struct {
	Location   string `json:"location"`
	Known      bool   `json:"known"`
	Suggestion string `json:"suggestion,omitempty"`
}

func describeLocation(name string) locationResponse {
	resp := locationResponse{Location: name}
	if name == "" {
		return resp
	}
	if suggestion, ok := location.Suggest(name); ok {
		resp.Known = strings.EqualFold(suggestion, name)
		if !resp.Known {
			resp.Suggestion = suggestion
		}
	}
	return resp
}

// GET /api/session/location
func (h *BrowseHandler) GetLocation(c *gin.Context) {
	c.JSON(http.StatusOK, describeLocation(sessionFrom(c).Location.Get()))
}

type setLocationDTO struct {
	Location string `json:"location"`
}

// PUT /api/session/location sets the selection; an empty location clears it.
// Open controllers refresh in the background.
func (h *BrowseHandler) SetLocation(c *gin.Context) {
	var req setLocationDTO
	if !bindJSON(c, &req) {
		return
	}
	loc := sessionFrom(c).Location
	if strings.TrimSpace(req.Location) == "" {
		loc.Clear()
	} else {
		loc.Set(req.Location)
	}
	c.JSON(http.StatusOK, describeLocation(loc.Get()))
}

func (h *BrowseHandler) controller(c *gin.Context) (*browse.Controller, bool) {
	kind, ok := kindParam(c)
	if !ok {
		return nil, false
	}
	return sessionFrom(c).Controller(kind), true
}

func respondState(c *gin.Context, st browse.State, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /api/browse/:kind loads the page on first use and returns the current state.
func (h *BrowseHandler) GetState(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st := ctrl.State()
	if st.Phase == browse.PhaseIdle {
		var err error
		st, err = ctrl.Load(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, st)
}

type pageDTO struct {
	Page int `json:"page"`
}

func (h *BrowseHandler) SetPage(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req pageDTO
	if !bindJSON(c, &req) {
		return
	}
	st, err := ctrl.SetPage(c.Request.Context(), req.Page)
	respondState(c, st, err)
}

type searchDTO struct {
	Term string `json:"term"`
}

func (h *BrowseHandler) SetSearch(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req searchDTO
	if !bindJSON(c, &req) {
		return
	}
	st, err := ctrl.SetSearchTerm(c.Request.Context(), req.Term)
	respondState(c, st, err)
}

type filterDTO struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

func (h *BrowseHandler) SetFilter(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req filterDTO
	if !bindJSON(c, &req) {
		return
	}
	st, err := ctrl.SetFilter(c.Request.Context(), req.Name, req.Value)
	respondState(c, st, err)
}

func (h *BrowseHandler) Retry(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	st, err := ctrl.Retry(c.Request.Context())
	respondState(c, st, err)
}
