package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
	"github.com/noah-isme/admin-console-api/pkg/export"
)

type auditStore interface {
	ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

type onlineCounter interface {
	OnlineCount() int
}

// ExportFormat selects the audit export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// MonitorService exposes the operational view of the console: who is online
// right now and what the authentication audit trail recorded.
type MonitorService struct {
	audits auditStore
	broker onlineCounter
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewMonitorService constructs a MonitorService instance.
func NewMonitorService(audits auditStore, broker onlineCounter, logger *zap.Logger) *MonitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorService{
		audits: audits,
		broker: broker,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// OnlineCount returns the current number of live console connections.
func (s *MonitorService) OnlineCount() int {
	if s.broker == nil {
		return 0
	}
	return s.broker.OnlineCount()
}

// ListAuditLogs returns audit entries matching the filter with a total count.
func (s *MonitorService) ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	logs, total, err := s.audits.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return logs, total, nil
}

// ExportAuditLogs renders the audit trail matching the filter as CSV or PDF
// bytes together with a content type for the download response.
func (s *MonitorService) ExportAuditLogs(ctx context.Context, filter models.AuditFilter, format ExportFormat) ([]byte, string, error) {
	// Exports ignore pagination and cap the row count instead.
	filter.Page = 1
	if filter.PageSize <= 0 || filter.PageSize > 5000 {
		filter.PageSize = 5000
	}

	logs, _, err := s.audits.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	table := export.Table{
		Headers: []string{"Time", "User", "Action", "Detail", "IP", "User Agent"},
		Rows:    make([][]string, 0, len(logs)),
	}
	for _, log := range logs {
		userID := ""
		if log.UserID != nil {
			userID = *log.UserID
		}
		table.Rows = append(table.Rows, []string{
			log.CreatedAt.UTC().Format(time.RFC3339),
			userID,
			log.Action,
			log.Detail,
			log.IPAddress,
			log.UserAgent,
		})
	}

	switch format {
	case ExportFormatPDF:
		payload, err := s.pdf.Render(table, "Authentication Audit Log")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		return payload, "application/pdf", nil
	case ExportFormatCSV, "":
		payload, err := s.csv.Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
