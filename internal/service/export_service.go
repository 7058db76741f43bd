package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
	"github.com/noah-isme/pts-payroll-api/pkg/export"
)

type exportPeriodReader interface {
	GetByID(ctx context.Context, id int64) (*models.PayPeriod, error)
}

type exportPayoutReader interface {
	ListByPeriod(ctx context.Context, periodID int64) ([]models.PayoutSummary, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Sign(name string) (string, time.Time, error)
	Verify(token string) (string, time.Time, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	Name      string
	Token     string
	URL       string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportService renders payout reports and hands out signed download links.
type ExportService struct {
	periods   exportPeriodReader
	payouts   exportPayoutReader
	storage   fileStorage
	signer    urlSigner
	renderers map[models.ExportFormat]renderer
	audit     auditLogger
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(periods exportPeriodReader, payouts exportPayoutReader, storage fileStorage, signer urlSigner, audit auditLogger, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		periods: periods,
		payouts: payouts,
		storage: storage,
		signer:  signer,
		renderers: map[models.ExportFormat]renderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		audit:  audit,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExportPeriod renders the payouts of a period and stores the file.
func (s *ExportService) ExportPeriod(ctx context.Context, periodID int64, format models.ExportFormat, actorID string) (*ExportResult, error) {
	format = models.ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = models.ExportFormatCSV
	}
	render, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	period, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pay period not found")
		}
		return nil, appErrors.Internal(err, "failed to load pay period")
	}
	payouts, err := s.payouts.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payouts")
	}

	payload, err := render.Render(payoutDataset(period, payouts))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	name := fmt.Sprintf("payouts/%04d-%02d_%s.%s", period.Year, period.Month, s.now().Format("20060102_150405"), format)
	stored, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(stored)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign export")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("payout export generated", zap.Int64("period_id", periodID), zap.String("format", string(format)), zap.Int("rows", len(payouts)))

	resourceID := strconv.FormatInt(periodID, 10)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     models.AuditActionExport,
		Resource:   "pay_period",
		ResourceID: &resourceID,
		NewValues:  []byte(fmt.Sprintf(`{"format":%q,"file":%q}`, format, stored)),
	})
	return &ExportResult{
		Name:      stored,
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and opens the referenced file.
func (s *ExportService) Resolve(token string) (*os.File, string, error) {
	name, _, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, "", appErrors.Internal(err, "failed to open export")
	}
	return file, name, nil
}

// Cleanup removes exports older than the configured TTL.
func (s *ExportService) Cleanup(ctx context.Context) error {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return fmt.Errorf("cleanup exports: %w", err)
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return nil
}

func payoutDataset(period *models.PayPeriod, payouts []models.PayoutSummary) export.Dataset {
	rows := make([][]string, 0, len(payouts)+1)
	total := decimal.Zero
	for _, p := range payouts {
		total = total.Add(p.TotalPayable)
		rows = append(rows, []string{
			p.CitizenID,
			p.FullName,
			p.RateSnapshot.StringFixed(2),
			strconv.FormatFloat(p.EligibleDays, 'f', 1, 64),
			strconv.FormatFloat(p.DeductedDays, 'f', 1, 64),
			strconv.Itoa(p.ValidLicenseDays),
			p.CalculatedAmount.StringFixed(2),
			p.RetroactiveAmount.StringFixed(2),
			p.TotalPayable.StringFixed(2),
			p.Remark,
		})
	}
	rows = append(rows, []string{"", "TOTAL", "", "", "", "", "", "", total.StringFixed(2), ""})
	return export.Dataset{
		Title: fmt.Sprintf("PTS payouts %04d-%02d (%s)", period.Year, period.Month, period.Status),
		Headers: []string{
			"citizen_id", "full_name", "rate", "eligible_days", "deducted_days", "license_days",
			"calculated", "retroactive", "total_payable", "remark",
		},
		Rows: rows,
	}
}
