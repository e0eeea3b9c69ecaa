package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/storage"
)

type downloadSubmissionReader interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
}

type downloadWorkReader interface {
	GetByID(ctx context.Context, id string) (*models.ApprovedWork, error)
}

// DownloadConfig sets how download links are built.
type DownloadConfig struct {
	PublicBaseURL string
	APIPrefix     string
}

// DownloadService decodes stored files and issues signed links to files of
// pending submissions.
type DownloadService struct {
	submissions downloadSubmissionReader
	works       downloadWorkReader
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         DownloadConfig
}

// NewDownloadService constructs the service.
func NewDownloadService(submissions downloadSubmissionReader, works downloadWorkReader, signer *storage.SignedURLSigner, logger *zap.Logger, cfg DownloadConfig) *DownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &DownloadService{submissions: submissions, works: works, signer: signer, logger: logger, cfg: cfg}
}

// SubmissionViews maps pending submissions to moderator views carrying signed
// links for every file that has content.
func (s *DownloadService) SubmissionViews(subs []models.Submission) []dto.SubmissionView {
	views := make([]dto.SubmissionView, len(subs))
	for i, sub := range subs {
		views[i] = s.SubmissionView(sub)
	}
	return views
}

// SubmissionView maps one submission.
func (s *DownloadService) SubmissionView(sub models.Submission) dto.SubmissionView {
	view := dto.NewSubmissionView(sub)
	for i := range view.Files {
		if !view.Files[i].Previewable || s.signer == nil {
			continue
		}
		token, expiresAt, err := s.signer.Generate(sub.ID, i)
		if err != nil {
			s.logger.Warn("failed to sign download link", zap.String("submission_id", sub.ID), zap.Int("index", i), zap.Error(err))
			continue
		}
		view.Files[i].DownloadURL = fmt.Sprintf("%s%s/downloads/%s", s.cfg.PublicBaseURL, s.cfg.APIPrefix, token)
		view.Files[i].ExpiresAt = &expiresAt
	}
	return view
}

// WorkFile decodes a file of an active approved work.
func (s *DownloadService) WorkFile(ctx context.Context, id string, index int) (*dto.FileDownload, error) {
	id, ok := normalizeID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
	}
	work, err := s.works.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, internalError(err, "failed to load work")
	}
	if !work.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
	}
	return decodeFile(work.Files, index)
}

// SignedFile resolves a download token to a decoded submission file.
func (s *DownloadService) SignedFile(ctx context.Context, token string) (*dto.FileDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download not found")
	}
	id, index, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrLinkExpired, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download link")
	}
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, internalError(err, "failed to load submission")
	}
	return decodeFile(sub.Files, index)
}

func decodeFile(files models.EncodedFiles, index int) (*dto.FileDownload, error) {
	if index < 0 || index >= len(files) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file := files[index]
	data, err := file.Decode()
	if err != nil {
		if errors.Is(err, models.ErrNoPayload) {
			return nil, appErrors.Clone(appErrors.ErrNoFileData, "no data available for this file")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUndecodableFile.Code, appErrors.ErrUndecodableFile.Status, "file content could not be decoded")
	}
	return &dto.FileDownload{Name: file.Name, ContentType: file.ContentType(), Data: data}, nil
}
