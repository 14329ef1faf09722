package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"studenthub/internal/model"
	"studenthub/internal/service"
)

func init() {
	// binding errors name fields by their JSON key
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(service.JSONFieldName)
	}
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidQuery), errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrBucketNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Validation errors name the field; server
// errors hide their details and are left for the access log.
func respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = service.FieldError(verrs)
	}
	status := statusOf(err)
	body := gin.H{"error": http.StatusText(status)}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		body["error"] = verr.Error()
		body["field"] = verr.Field
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
	default:
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON binds the body into dst. Failed binding rules answer 400 with the
// field; malformed JSON answers a plain 400.
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondError(c, err)
	} else {
		badRequest(c, "invalid payload")
	}
	return false
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
