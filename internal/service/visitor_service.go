package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
)

type visitorStore interface {
	Create(ctx context.Context, visitor *models.Visitor) error
	List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, int, error)
}

// VisitorService records portal visits.
type VisitorService struct {
	repo      visitorStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVisitorService constructs the service.
func NewVisitorService(repo visitorStore, validate *validator.Validate, logger *zap.Logger) *VisitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitorService{repo: repo, validator: newValidator(validate), logger: logger}
}

// Track stores one visit.
func (s *VisitorService) Track(ctx context.Context, req dto.TrackVisitorRequest) (*models.Visitor, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Page = strings.ToLower(strings.TrimSpace(req.Page))
	req.DeviceType = strings.ToLower(strings.TrimSpace(req.DeviceType))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid visitor payload")
	}

	visitor := &models.Visitor{
		Name:       req.Name,
		Page:       models.VisitorPage(req.Page),
		DeviceType: models.DeviceType(req.DeviceType),
		UserAgent:  req.UserAgent,
		IPAddress:  req.IPAddress,
	}
	if err := s.repo.Create(ctx, visitor); err != nil {
		return nil, internalError(err, "failed to record visitor")
	}
	return visitor, nil
}

// List returns visits newest first.
func (s *VisitorService) List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, *models.Pagination, error) {
	visitors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list visitors")
	}
	return visitors, pagination(filter.Limit, filter.Offset, total), nil
}
