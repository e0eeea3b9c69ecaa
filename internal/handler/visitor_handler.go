package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type visitorService interface {
	Track(ctx context.Context, req dto.TrackVisitorRequest) (*models.Visitor, error)
	List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, *models.Pagination, error)
}

// VisitorHandler records and lists portal visits.
type VisitorHandler struct {
	service visitorService
}

// NewVisitorHandler constructs the handler.
func NewVisitorHandler(svc visitorService) *VisitorHandler {
	return &VisitorHandler{service: svc}
}

// Track godoc
// @Summary Record a portal visit
// @Tags Visitors
// @Accept json
// @Produce json
// @Param payload body dto.TrackVisitorRequest true "Visit"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /visitors [post]
func (h *VisitorHandler) Track(c *gin.Context) {
	var req dto.TrackVisitorRequest
	if err := bindJSON(c, &req, "invalid visitor payload"); err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.Name == "" {
		req.Name = claims.Name
	}
	req.UserAgent = c.GetHeader("User-Agent")
	req.IPAddress = c.ClientIP()

	visitor, err := h.service.Track(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visitor)
}

// List godoc
// @Summary List portal visits
// @Tags Visitors
// @Produce json
// @Security BearerAuth
// @Param page query string false "teacher or student"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /visitors [get]
func (h *VisitorHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.Error(c, err)
		return
	}

	visitors, page, err := h.service.List(c.Request.Context(), models.VisitorFilter{
		Page:   models.VisitorPage(c.Query("page")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitors, page)
}
