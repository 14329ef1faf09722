package handler

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"studenthub/internal/middleware"
	"studenthub/internal/model"
	"studenthub/internal/service"
)

// PhotoHandler uploads listing photos and avatars and serves stored files.
type PhotoHandler struct {
	Media *service.MediaService
}

// RegisterRoutes registers:
//
//	POST /listings/:kind/:id/photo  (admin)
//	POST /profile/avatar
//	GET  /storage/:bucket           own uploads
//	GET  /storage/:bucket/:id
func (h *PhotoHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/listings/:kind/:id/photo", middleware.RequireRole(model.RoleAdmin), h.UploadListingPhoto)
	rg.POST("/profile/avatar", middleware.RequireAuth(), h.UploadAvatar)
	rg.GET("/storage/:bucket", middleware.RequireAuth(), h.ListFiles)
	rg.GET("/storage/:bucket/:id", h.Download)
}

func (h *PhotoHandler) UploadListingPhoto(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "cannot open file")
		return
	}
	defer file.Close()

	url, err := h.Media.UploadListingPhoto(c.Request.Context(), middleware.ActorFrom(c), kind, c.Param("id"), fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}

func (h *PhotoHandler) UploadAvatar(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "cannot open file")
		return
	}
	defer file.Close()

	profile, err := h.Media.UploadAvatar(c.Request.Context(), middleware.ActorFrom(c), fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *PhotoHandler) ListFiles(c *gin.Context) {
	files, err := h.Media.Files(c.Request.Context(), middleware.ActorFrom(c), c.Param("bucket"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *PhotoHandler) Download(c *gin.Context) {
	data, filename, err := h.Media.Open(c.Request.Context(), c.Param("bucket"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
