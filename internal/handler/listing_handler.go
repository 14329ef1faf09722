package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studenthub/internal/middleware"
	"studenthub/internal/model"
	"studenthub/internal/repository"
	"studenthub/internal/service"
)

// ListingHandler serves listing pages, listing details and admin listing edits.
type ListingHandler struct {
	Listings *service.ListingService
	Detail   *service.DetailService
	Repo     *repository.ListingRepository
}

// PageResponse is one page of a listing.
type PageResponse struct {
	Rows       []model.Entity `json:"rows"`
	TotalCount int            `json:"totalCount"`
	TotalPages int            `json:"totalPages"`
	Page       int            `json:"page"`
	Source     model.Source   `json:"source"`
	Offline    bool           `json:"offline"`
}

// RegisterRoutes registers:
//
//	GET    /listings/:kind
//	GET    /listings/:kind/:id
//	POST   /admin/listings/:kind
//	PUT    /admin/listings/:kind/:id
//	DELETE /admin/listings/:kind/:id
func (h *ListingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/listings/:kind", h.GetPage)
	rg.GET("/listings/:kind/:id", h.GetDetail)

	admin := rg.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/listings/:kind", h.CreateListing)
	admin.PUT("/listings/:kind/:id", h.UpdateListing)
	admin.DELETE("/listings/:kind/:id", h.DeleteListing)
}

func kindParam(c *gin.Context) (model.Kind, bool) {
	kind, err := model.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return kind, true
}

// GET /api/listings/:kind?location=...&search=...&page=...&<filter>=...
func (h *ListingHandler) GetPage(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	q := model.ListingQuery{
		Kind:       kind,
		Page:       page,
		SearchTerm: c.Query("search"),
		Location:   c.Query("location"),
		Filters:    map[string]string{},
	}
	for _, name := range kind.Filters() {
		if v := c.Query(name); v != "" {
			q.Filters[name] = v
		}
	}

	res, err := h.Listings.Fetch(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, PageResponse{
		Rows:       res.Rows,
		TotalCount: res.TotalCount,
		TotalPages: model.TotalPages(res.TotalCount),
		Page:       page,
		Source:     res.Source,
		Offline:    res.Source == model.SourceFallback,
	})
}

// GET /api/listings/:kind/:id
func (h *ListingHandler) GetDetail(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	view, err := h.Detail.Load(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// bindEntity decodes the JSON body into the row type for kind.
func bindEntity(c *gin.Context, kind model.Kind, id string) (model.Entity, bool) {
	var e model.Entity
	switch kind {
	case model.KindHostel:
		var h model.Hostel
		if err := c.ShouldBindJSON(&h); err != nil {
			badRequest(c, "invalid payload")
			return nil, false
		}
		h.ID, h.Name = id, strings.TrimSpace(h.Name)
		e = h
	case model.KindRestaurant:
		var r model.Restaurant
		if err := c.ShouldBindJSON(&r); err != nil {
			badRequest(c, "invalid payload")
			return nil, false
		}
		r.ID, r.Name = id, strings.TrimSpace(r.Name)
		e = r
	case model.KindPlace:
		var p model.Place
		if err := c.ShouldBindJSON(&p); err != nil {
			badRequest(c, "invalid payload")
			return nil, false
		}
		p.ID, p.Name = id, strings.TrimSpace(p.Name)
		e = p
	}
	if name, _ := e.Searchable(); name == "" {
		respondError(c, model.Invalid("name", "required"))
		return nil, false
	}
	return e, true
}

func stamp(e model.Entity, at time.Time) model.Entity {
	switch v := e.(type) {
	case model.Hostel:
		v.CreatedAt, v.Rating = at, 0
		return v
	case model.Restaurant:
		v.CreatedAt, v.Rating = at, 0
		return v
	case model.Place:
		v.CreatedAt, v.Rating = at, 0
		return v
	}
	return e
}

// POST /api/admin/listings/:kind
func (h *ListingHandler) CreateListing(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	e, ok := bindEntity(c, kind, uuid.NewString())
	if !ok {
		return
	}
	e = stamp(e, time.Now().UTC())
	if err := h.Repo.Create(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// PUT /api/admin/listings/:kind/:id
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	e, ok := bindEntity(c, kind, c.Param("id"))
	if !ok {
		return
	}
	if err := h.Repo.Update(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}
	current, err := h.Repo.GetByID(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

// DELETE /api/admin/listings/:kind/:id
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	if err := h.Repo.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
