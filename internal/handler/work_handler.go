package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/middleware"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

type workReader interface {
	ListPublicWorks(ctx context.Context) ([]dto.WorkView, bool, error)
	GetWork(ctx context.Context, id string) (*dto.WorkView, error)
	GetWorkRecord(ctx context.Context, id string) (*models.ApprovedWork, error)
}

type workDeleter interface {
	DeleteWork(ctx context.Context, id, actor string) error
}

type fileDownloader interface {
	WorkFile(ctx context.Context, id string, index int) (*dto.FileDownload, error)
	SignedFile(ctx context.Context, token string) (*dto.FileDownload, error)
}

// WorkHandler serves the public gallery of approved works.
type WorkHandler struct {
	works     workReader
	deleter   workDeleter
	downloads fileDownloader
}

// NewWorkHandler constructs the handler.
func NewWorkHandler(works workReader, deleter workDeleter, downloads fileDownloader) *WorkHandler {
	return &WorkHandler{works: works, deleter: deleter, downloads: downloads}
}

// List godoc
// @Summary List approved works
// @Description Payload-free listing of every active approved work, newest first
// @Tags Works
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /works [get]
func (h *WorkHandler) List(c *gin.Context) {
	views, hit, err := h.works.ListPublicWorks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, views, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get an approved work
// @Tags Works
// @Produce json
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /works/{id} [get]
func (h *WorkHandler) Get(c *gin.Context) {
	view, err := h.works.GetWork(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Record godoc
// @Summary Get a work including deleted ones
// @Tags Works
// @Produce json
// @Security BearerAuth
// @Param id path string true "Work ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /works/{id}/record [get]
func (h *WorkHandler) Record(c *gin.Context) {
	work, err := h.works.GetWorkRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	record := struct {
		dto.WorkView
		Status    models.WorkStatus `json:"status"`
		DeletedAt *time.Time        `json:"deletedAt,omitempty"`
	}{WorkView: dto.NewWorkView(*work), Status: work.Status, DeletedAt: work.DeletedAt}
	response.JSON(c, http.StatusOK, record, nil)
}

// File godoc
// @Summary Download a file of an approved work
// @Tags Works
// @Produce octet-stream
// @Param id path string true "Work ID"
// @Param index path int true "File index"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /works/{id}/files/{index} [get]
func (h *WorkHandler) File(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	file, err := h.downloads.WorkFile(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data)
}

// Download godoc
// @Summary Download a pending submission file through a signed link
// @Tags Works
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *WorkHandler) Download(c *gin.Context) {
	file, err := h.downloads.SignedFile(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data)
}

// Delete godoc
// @Summary Soft delete an approved work
// @Tags Works
// @Security BearerAuth
// @Param id path string true "Work ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /works/{id} [delete]
func (h *WorkHandler) Delete(c *gin.Context) {
	if err := h.deleter.DeleteWork(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
