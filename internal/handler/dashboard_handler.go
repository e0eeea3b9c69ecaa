package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/datacache"
	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/service"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type dashboardCache interface {
	Snapshot() datacache.Snapshot
	Refresh(ctx context.Context) error
	Approve(ctx context.Context, id, actor string) *dto.ApprovalResult
	Reject(ctx context.Context, id, actor string)
	DeleteWork(ctx context.Context, id, actor string)
}

// DashboardHandler serves the developer dashboard from the live cache.
// Moderation failures surface in the view's error field instead of the
// status code.
type DashboardHandler struct {
	cache dashboardCache
	views submissionViewer
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(cache dashboardCache, views submissionViewer) *DashboardHandler {
	return &DashboardHandler{cache: cache, views: views}
}

// Get godoc
// @Summary Developer dashboard
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Re-fetch before answering"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if c.Query("refresh") == "true" || c.Query("refresh") == "1" {
		_ = h.cache.Refresh(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, h.view(), nil)
}

// Approve godoc
// @Summary Approve from the dashboard
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/submissions/{id}/approve [post]
func (h *DashboardHandler) Approve(c *gin.Context) {
	result := h.cache.Approve(c.Request.Context(), c.Param("id"), actor(c))
	h.respond(c, result)
}

// Reject godoc
// @Summary Reject from the dashboard
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/submissions/{id}/reject [post]
func (h *DashboardHandler) Reject(c *gin.Context) {
	h.cache.Reject(c.Request.Context(), c.Param("id"), actor(c))
	h.respond(c, nil)
}

// DeleteWork godoc
// @Summary Delete a work from the dashboard
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/works/{id} [delete]
func (h *DashboardHandler) DeleteWork(c *gin.Context) {
	h.cache.DeleteWork(c.Request.Context(), c.Param("id"), actor(c))
	h.respond(c, nil)
}

func (h *DashboardHandler) respond(c *gin.Context, approval *dto.ApprovalResult) {
	response.JSON(c, http.StatusOK, dto.DashboardActionResult{Approval: approval, Dashboard: h.view()}, nil)
}

func (h *DashboardHandler) view() dto.DashboardView {
	snap := h.cache.Snapshot()
	return dto.DashboardView{
		Pending:       h.views.SubmissionViews(snap.Pending),
		ApprovedWorks: service.WorkViews(snap.ApprovedWorks),
		TeacherLogins: snap.TeacherLogins,
		Error:         snap.Error,
		Loading:       snap.Loading,
		RefreshedAt:   snap.RefreshedAt,
	}
}
