package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/export"
)

// Exportable datasets.
const (
	DatasetApprovedWorks  = "approved_works"
	DatasetModerationLogs = "moderation_logs"
)

const exportPageSize = 200

type exportWorkReader interface {
	ListActive(ctx context.Context, excludeName string) ([]models.ApprovedWork, error)
}

type exportLogReader interface {
	List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	SentinelName string
	MaxRows      int
}

// ExportFile is a rendered document ready to download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders portfolio datasets as CSV, PDF or XLSX.
type ExportService struct {
	works  exportWorkReader
	logs   exportLogReader
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(works exportWorkReader, logs exportLogReader, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	return &ExportService{works: works, logs: logs, logger: logger, cfg: cfg, now: time.Now}
}

// Export renders the named dataset in the requested format.
func (s *ExportService) Export(ctx context.Context, dataset, format string) (*ExportFile, error) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, validationError(err, "unsupported export format")
	}

	var data export.Dataset
	switch dataset {
	case DatasetApprovedWorks:
		data, err = s.worksDataset(ctx)
	case DatasetModerationLogs:
		data, err = s.logsDataset(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown dataset %q", dataset))
	}
	if err != nil {
		return nil, err
	}

	rendered, err := exporter.Render(data)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	s.logger.Info("export generated",
		zap.String("dataset", dataset),
		zap.String("format", exporter.Extension()),
		zap.Int("rows", len(data.Rows)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", dataset, s.now().UTC().Format("20060102_150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Data:        rendered,
	}, nil
}

func (s *ExportService) worksDataset(ctx context.Context) (export.Dataset, error) {
	works, err := s.works.ListActive(ctx, s.cfg.SentinelName)
	if err != nil {
		return export.Dataset{}, internalError(err, "failed to load approved works")
	}
	if len(works) > s.cfg.MaxRows {
		works = works[:s.cfg.MaxRows]
	}

	rows := make([]map[string]string, 0, len(works))
	for _, w := range works {
		names := make([]string, len(w.Files))
		for i, f := range w.Files {
			names[i] = f.Name
		}
		rows = append(rows, map[string]string{
			"id":         w.ID,
			"name":       w.Name,
			"files":      strconv.Itoa(len(w.Files)),
			"file_names": strings.Join(names, ", "),
			"timestamp":  w.Timestamp,
			"approved":   w.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title: "Approved Works",
		Columns: []export.Column{
			{Key: "id", Label: "ID"},
			{Key: "name", Label: "Student"},
			{Key: "files", Label: "Files"},
			{Key: "file_names", Label: "File Names"},
			{Key: "timestamp", Label: "Submitted"},
			{Key: "approved", Label: "Created"},
		},
		Rows: rows,
	}, nil
}

func (s *ExportService) logsDataset(ctx context.Context) (export.Dataset, error) {
	var rows []map[string]string
	for offset := 0; offset < s.cfg.MaxRows; offset += exportPageSize {
		page, total, err := s.logs.List(ctx, models.ModerationLogFilter{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return export.Dataset{}, internalError(err, "failed to load moderation logs")
		}
		for _, entry := range page {
			resource := ""
			if entry.ResourceID != nil {
				resource = *entry.ResourceID
			}
			rows = append(rows, map[string]string{
				"time":     entry.CreatedAt.UTC().Format(time.RFC3339),
				"action":   entry.Action,
				"resource": resource,
				"details":  entry.Details,
				"actor":    entry.Actor,
			})
		}
		if len(page) < exportPageSize || offset+len(page) >= total {
			break
		}
	}
	if len(rows) > s.cfg.MaxRows {
		rows = rows[:s.cfg.MaxRows]
	}
	return export.Dataset{
		Title: "Moderation Log",
		Columns: []export.Column{
			{Key: "time", Label: "Time"},
			{Key: "action", Label: "Action"},
			{Key: "resource", Label: "Resource"},
			{Key: "details", Label: "Details"},
			{Key: "actor", Label: "Actor"},
		},
		Rows: rows,
	}, nil
}
