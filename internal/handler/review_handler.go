package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studenthub/internal/middleware"
	"studenthub/internal/service"
)

// ReviewRequestDTO is the JSON payload for creating a new review.
type ReviewRequestDTO struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required,max=2000"`
}

// BookingRequestDTO is the JSON payload for a hostel booking request.
type BookingRequestDTO struct {
	Message string `json:"message" binding:"required,max=1000"`
}

// ReviewHandler ties review and booking requests to the DetailService.
type ReviewHandler struct {
	detail *service.DetailService
}

func NewReviewHandler(ds *service.DetailService) *ReviewHandler {
	return &ReviewHandler{detail: ds}
}

// RegisterRoutes registers:
//
//	POST /listings/:kind/:id/reviews
//	POST /hostels/:id/bookings
//	GET  /bookings
func (h *ReviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("", middleware.RequireAuth())
	auth.POST("/listings/:kind/:id/reviews", h.CreateReview)
	auth.POST("/hostels/:id/bookings", h.CreateBooking)
	auth.GET("/bookings", h.ListBookings)
}

// CreateReview handles POST /api/listings/:kind/:id/reviews and answers with the
// listing's refreshed reviews.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req ReviewRequestDTO
	if !bindJSON(c, &req) {
		return
	}

	reviews, err := h.detail.SubmitReview(c.Request.Context(), middleware.ActorFrom(c), kind, c.Param("id"),
		service.ReviewInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reviews)
}

// CreateBooking handles POST /api/hostels/:id/bookings.
func (h *ReviewHandler) CreateBooking(c *gin.Context) {
	var req BookingRequestDTO
	if !bindJSON(c, &req) {
		return
	}
	receipt, err := h.detail.SubmitBookingRequest(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"),
		service.BookingInput{Message: req.Message})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ListBookings handles GET /api/bookings.
func (h *ReviewHandler) ListBookings(c *gin.Context) {
	bookings, err := h.detail.ListBookings(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
