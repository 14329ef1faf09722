package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studenthub/internal/middleware"
	"studenthub/internal/repository"
	"studenthub/internal/service"
	"studenthub/internal/session"
)

// Deps is everything the HTTP API needs.
type Deps struct {
	Logger         *zap.Logger
	Tokens         *middleware.Tokens
	Listings       *service.ListingService
	Detail         *service.DetailService
	Auth           *service.AuthService
	Profiles       *service.ProfileService
	Media          *service.MediaService
	Sessions       *session.Store
	ListingRepo    *repository.ListingRepository
	StorageEnabled bool
	SecureCookie   bool
	CookieMaxAge   int
}

// NewRouter mounts every handler under /api.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(logger))

	api := r.Group("/api", middleware.OptionalAuth(d.Tokens))
	(&StatusHandler{Listings: d.Listings, StorageEnabled: d.StorageEnabled}).RegisterRoutes(api)
	(&ListingHandler{Listings: d.Listings, Detail: d.Detail, Repo: d.ListingRepo}).RegisterRoutes(api)
	NewReviewHandler(d.Detail).RegisterRoutes(api)
	(&PhotoHandler{Media: d.Media}).RegisterRoutes(api)
	(&BrowseHandler{Sessions: d.Sessions, SecureCookie: d.SecureCookie, CookieMaxAge: d.CookieMaxAge}).RegisterRoutes(api)
	(&AuthHandler{Auth: d.Auth}).RegisterRoutes(api)
	(&ProfileHandler{Profiles: d.Profiles}).RegisterRoutes(api)
	return r
}
