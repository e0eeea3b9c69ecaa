package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/service"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

var errPurgeDisabled = appErrors.Clone(appErrors.ErrUnavailable, "purge job is disabled")

type moderationLogLister interface {
	ListLogs(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error)
}

type purgeTrigger interface {
	Trigger() (*dto.PurgeAccepted, error)
}

type exporter interface {
	Export(ctx context.Context, dataset, format string) (*service.ExportFile, error)
}

// ModerationHandler exposes the moderation log, purge and export endpoints.
type ModerationHandler struct {
	logs    moderationLogLister
	purge   purgeTrigger
	exports exporter
}

// NewModerationHandler constructs the handler. purge may be nil when the
// purge job is disabled.
func NewModerationHandler(logs moderationLogLister, purge purgeTrigger, exports exporter) *ModerationHandler {
	return &ModerationHandler{logs: logs, purge: purge, exports: exports}
}

// Logs godoc
// @Summary List moderation log entries
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param action query string false "Filter by action"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /moderation/logs [get]
func (h *ModerationHandler) Logs(c *gin.Context) {
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

	entries, page, err := h.logs.ListLogs(c.Request.Context(), models.ModerationLogFilter{
		Action: c.Query("action"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, page)
}

// Purge godoc
// @Summary Archive and remove long-deleted works
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /moderation/purge [post]
func (h *ModerationHandler) Purge(c *gin.Context) {
	if h.purge == nil {
		response.Error(c, errPurgeDisabled)
		return
	}
	accepted, err := h.purge.Trigger()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted)
}

// Export godoc
// @Summary Export a dataset
// @Tags Moderation
// @Produce octet-stream
// @Security BearerAuth
// @Param dataset path string true "approved_works or moderation_logs"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{dataset} [get]
func (h *ModerationHandler) Export(c *gin.Context) {
	file, err := h.exports.Export(c.Request.Context(), c.Param("dataset"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
