package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/payroll"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

const holidayCachePrefix = "holidays:"

type holidayStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	ExistsOn(ctx context.Context, date time.Time) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// HolidayService manages the holiday calendar and serves cached date sets to the payroll engine.
type HolidayService struct {
	repo      holidayStore
	cache     *CacheService
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewHolidayService constructs the service. cache may be nil.
func NewHolidayService(repo holidayStore, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HolidayService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, cacheTTL: 6 * time.Hour}
}

// List returns the holidays of a calendar year.
func (s *HolidayService) List(ctx context.Context, year int) ([]models.Holiday, error) {
	if year < 1900 || year > 2600 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	holidays, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list holidays")
	}
	return holidays, nil
}

// Between returns holiday dates in [from, to] for calendar arithmetic, cached per range.
func (s *HolidayService) Between(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	from, to = payroll.Truncate(from), payroll.Truncate(to)
	key := holidayCachePrefix + payroll.DateKey(from) + ":" + payroll.DateKey(to)

	var dates []time.Time
	err := s.cache.Remember(ctx, key, s.cacheTTL, &dates, func() error {
		holidays, err := s.repo.ListBetween(ctx, from, to)
		if err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
		dates = make([]time.Time, 0, len(holidays))
		for _, h := range holidays {
			dates = append(dates, h.HolidayDate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dates, nil
}

// Create records a holiday; the date must be unique.
func (s *HolidayService) Create(ctx context.Context, req dto.CreateHolidayRequest, actorID string) (*models.Holiday, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	date, err := time.Parse(payroll.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	exists, err := s.repo.ExistsOn(ctx, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check holiday")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a holiday already exists on "+req.Date)
	}

	holiday := &models.Holiday{HolidayDate: date, Name: req.Name}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, appErrors.Internal(err, "failed to create holiday")
	}
	s.invalidate(ctx)

	id := strconv.FormatInt(holiday.ID, 10)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     models.AuditActionHolidayCreate,
		Resource:   "holiday",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"date":%q,"name":%q}`, req.Date, req.Name)),
	})
	return holiday, nil
}

// Delete removes a holiday by id.
func (s *HolidayService) Delete(ctx context.Context, id int64, actorID string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete holiday")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
	}
	s.invalidate(ctx)

	resourceID := strconv.FormatInt(id, 10)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     models.AuditActionHolidayDelete,
		Resource:   "holiday",
		ResourceID: &resourceID,
	})
	return nil
}

func (s *HolidayService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, holidayCachePrefix+"*")
}
