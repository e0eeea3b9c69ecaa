package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/middleware"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actor names the caller for moderation logs.
func actor(c *gin.Context) string {
	return claimsFromContext(c).Actor()
}

// bindJSON decodes the body into dest, reporting oversized bodies as 413.
func bindJSON(c *gin.Context, dest interface{}, message string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, appErrors.ErrPayloadTooLarge.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	return nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return value, nil
}
