package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type submissionService interface {
	Create(ctx context.Context, req dto.CreateSubmissionRequest) (*models.Submission, error)
	ListPending(ctx context.Context) ([]models.Submission, error)
}

type submissionModerator interface {
	Approve(ctx context.Context, id, actor string) (*dto.ApprovalResult, error)
	Reject(ctx context.Context, id, actor string) (*models.Submission, error)
}

type submissionViewer interface {
	SubmissionViews(subs []models.Submission) []dto.SubmissionView
	SubmissionView(sub models.Submission) dto.SubmissionView
}

// SubmissionHandler serves student uploads and their moderation.
type SubmissionHandler struct {
	submissions submissionService
	moderation  submissionModerator
	views       submissionViewer
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(submissions submissionService, moderation submissionModerator, views submissionViewer) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, moderation: moderation, views: views}
}

// Create godoc
// @Summary Submit student work
// @Description Upload one to ten base64 encoded files for moderation
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := bindJSON(c, &req, "invalid submission payload"); err != nil {
		response.Error(c, err)
		return
	}

	sub, err := h.submissions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSubmissionView(*sub))
}

// ListPending godoc
// @Summary List pending submissions
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) ListPending(c *gin.Context) {
	subs, err := h.submissions.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.views.SubmissionViews(subs), nil)
}

// Approve godoc
// @Summary Approve a pending submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	result, err := h.moderation.Approve(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a pending submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	sub, err := h.moderation.Reject(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSubmissionView(*sub), nil)
}
