package dto

import (
	"time"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

// CreateSubmissionRequest is the student upload payload.
type CreateSubmissionRequest struct {
	Name      string               `json:"name" validate:"required,max=200"`
	Files     []models.EncodedFile `json:"files" validate:"dive"`
	Timestamp string               `json:"timestamp" validate:"max=64"`
}

// FileView describes one file without its payload.
type FileView struct {
	Index       int        `json:"index"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Size        int64      `json:"size"`
	Previewable bool       `json:"previewable"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// SubmissionView is a pending submission as shown to moderators.
type SubmissionView struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Timestamp string                  `json:"timestamp"`
	Status    models.SubmissionStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
	Files     []FileView              `json:"files"`
}

// WorkView is an approved work as listed publicly.
type WorkView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Timestamp string     `json:"timestamp"`
	CreatedAt time.Time  `json:"createdAt"`
	Files     []FileView `json:"files"`
}

// ApprovalResult is returned after a successful approval. Clients show a
// banner naming the student for BannerTTLSeconds.
type ApprovalResult struct {
	Work             *models.ApprovedWork `json:"work"`
	StudentName      string               `json:"studentName"`
	BannerTTLSeconds int                  `json:"bannerTtlSeconds"`
}

// FileDownload is a decoded file ready to stream.
type FileDownload struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFileView describes file index of a submission or work.
func NewFileView(index int, f models.EncodedFile) FileView {
	return FileView{
		Index:       index,
		Name:        f.Name,
		Type:        f.Type,
		Size:        f.Size,
		Previewable: f.Previewable(),
	}
}

// NewSubmissionView maps a submission without download links.
func NewSubmissionView(sub models.Submission) SubmissionView {
	files := make([]FileView, len(sub.Files))
	for i, f := range sub.Files {
		files[i] = NewFileView(i, f)
	}
	return SubmissionView{
		ID:        sub.ID,
		Name:      sub.Name,
		Timestamp: sub.Timestamp,
		Status:    sub.Status,
		CreatedAt: sub.CreatedAt,
		Files:     files,
	}
}

// NewWorkView maps an approved work.
func NewWorkView(w models.ApprovedWork) WorkView {
	files := make([]FileView, len(w.Files))
	for i, f := range w.Files {
		files[i] = NewFileView(i, f)
	}
	return WorkView{
		ID:        w.ID,
		Name:      w.Name,
		Timestamp: w.Timestamp,
		CreatedAt: w.CreatedAt,
		Files:     files,
	}
}
