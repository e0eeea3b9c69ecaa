package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type authService interface {
	DeveloperLogin(ctx context.Context, req models.DeveloperLoginRequest) (*models.LoginResponse, error)
	TeacherLogin(ctx context.Context, req models.TeacherLoginRequest) (*models.LoginResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// DeveloperLogin godoc
// @Summary Unlock the moderation dashboard
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.DeveloperLoginRequest true "Passphrase"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/developer [post]
func (h *AuthHandler) DeveloperLogin(c *gin.Context) {
	var req models.DeveloperLoginRequest
	if err := bindJSON(c, &req, "invalid login payload"); err != nil {
		response.Error(c, err)
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.DeveloperLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// TeacherLogin godoc
// @Summary Unlock the teacher portal
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.TeacherLoginRequest true "Name and passphrase"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/teacher [post]
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req models.TeacherLoginRequest
	if err := bindJSON(c, &req, "invalid login payload"); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.TeacherLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// TeacherSession godoc
// @Summary Welcome payload for a signed-in teacher
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /teacher/session [get]
func (h *AuthHandler) TeacherSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, dto.TeacherSession{
		Name:       claims.Name,
		LoggedInAt: claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil)
}
