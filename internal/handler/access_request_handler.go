package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type accessRequestService interface {
	Request(ctx context.Context, req dto.CreateAccessRequest) (*models.AccessRequest, error)
	List(ctx context.Context, filter models.AccessRequestFilter) ([]models.AccessRequest, *models.Pagination, error)
	Approve(ctx context.Context, id, notes, actor string) (*models.AccessRequest, error)
	Reject(ctx context.Context, id, notes, actor string) (*models.AccessRequest, error)
}

// AccessRequestHandler serves student access requests.
type AccessRequestHandler struct {
	service accessRequestService
}

// NewAccessRequestHandler constructs the handler.
func NewAccessRequestHandler(svc accessRequestService) *AccessRequestHandler {
	return &AccessRequestHandler{service: svc}
}

// Create godoc
// @Summary Request portal access
// @Tags AccessRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateAccessRequest true "Request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /access-requests [post]
func (h *AccessRequestHandler) Create(c *gin.Context) {
	var req dto.CreateAccessRequest
	if err := bindJSON(c, &req, "invalid access request"); err != nil {
		response.Error(c, err)
		return
	}
	created, err := h.service.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List access requests
// @Tags AccessRequests
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /access-requests [get]
func (h *AccessRequestHandler) List(c *gin.Context) {
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

	rows, page, err := h.service.List(c.Request.Context(), models.AccessRequestFilter{
		Status: models.AccessRequestStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, page)
}

// Approve godoc
// @Summary Approve an access request
// @Tags AccessRequests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.DecideAccessRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /access-requests/{id}/approve [post]
func (h *AccessRequestHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject an access request
// @Tags AccessRequests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.DecideAccessRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /access-requests/{id}/reject [post]
func (h *AccessRequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

type decideFunc func(ctx context.Context, id, notes, actor string) (*models.AccessRequest, error)

func (h *AccessRequestHandler) decide(c *gin.Context, fn decideFunc) {
	var body dto.DecideAccessRequest
	// The note is optional, so an empty body is fine.
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &body, "invalid decision payload"); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, err)
			return
		}
	}
	decided, err := fn(c.Request.Context(), c.Param("id"), body.Notes, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decided, nil)
}
