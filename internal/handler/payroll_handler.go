package handler

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/service"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
	"github.com/noah-isme/pts-payroll-api/pkg/response"
)

var citizenIDPattern = regexp.MustCompile(`^\d{13}$`)

type periodService interface {
	CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*models.PayPeriod, error)
	ListPeriods(ctx context.Context, year int) ([]models.PayPeriod, error)
	GetPeriod(ctx context.Context, id int64) (*models.PayPeriod, error)
	RunPeriod(ctx context.Context, id int64, actorID string) (*models.PayPeriod, error)
	ClosePeriod(ctx context.Context, id int64, actorID string) (*models.PayPeriod, error)
	ListPayouts(ctx context.Context, periodID int64) ([]models.PayoutSummary, error)
	ListPayoutItems(ctx context.Context, payoutID string) ([]models.PayoutItem, error)
}

type calculationService interface {
	CalculateMonthly(ctx context.Context, citizenID string, year, month int) (*models.PayoutResult, error)
	CalculateRetroactive(ctx context.Context, citizenID string, year, month, lookBack int) (*models.RetroResult, error)
}

type payoutExporter interface {
	ExportPeriod(ctx context.Context, periodID int64, format models.ExportFormat, actorID string) (*service.ExportResult, error)
}

// PayrollHandler exposes pay periods, runs and calculation previews.
type PayrollHandler struct {
	periods  periodService
	calc     calculationService
	exporter payoutExporter
}

// NewPayrollHandler constructs the handler.
func NewPayrollHandler(periods periodService, calc calculationService, exporter payoutExporter) *PayrollHandler {
	return &PayrollHandler{periods: periods, calc: calc, exporter: exporter}
}

// CreatePeriod godoc
// @Summary Open a pay period
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.CreatePeriodRequest true "Period"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payroll/periods [post]
func (h *PayrollHandler) CreatePeriod(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period payload"))
		return
	}
	period, err := h.periods.CreatePeriod(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, period, nil)
}

// ListPeriods godoc
// @Summary List pay periods
// @Tags Payroll
// @Produce json
// @Param year query int false "Year"
// @Success 200 {object} response.Envelope
// @Router /payroll/periods [get]
func (h *PayrollHandler) ListPeriods(c *gin.Context) {
	year, err := intQuery(c, "year", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	periods, err := h.periods.ListPeriods(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// GetPeriod godoc
// @Summary Get a pay period
// @Tags Payroll
// @Produce json
// @Param id path int true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/periods/{id} [get]
func (h *PayrollHandler) GetPeriod(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := h.periods.GetPeriod(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// RunPeriod godoc
// @Summary Queue a payroll run
// @Description Calculation happens in the background; poll the period for totals.
// @Tags Payroll
// @Produce json
// @Param id path int true "Period ID"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /payroll/periods/{id}/run [post]
func (h *PayrollHandler) RunPeriod(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := h.periods.RunPeriod(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, period)
}

// ClosePeriod godoc
// @Summary Close a pay period
// @Tags Payroll
// @Produce json
// @Param id path int true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/periods/{id}/close [post]
func (h *PayrollHandler) ClosePeriod(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := h.periods.ClosePeriod(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// ListPayouts godoc
// @Summary List payouts of a period
// @Tags Payroll
// @Produce json
// @Param id path int true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/periods/{id}/payouts [get]
func (h *PayrollHandler) ListPayouts(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	payouts, err := h.periods.ListPayouts(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payouts, nil)
}

// ListPayoutItems godoc
// @Summary List the lines of a payout
// @Tags Payroll
// @Produce json
// @Param payoutId path string true "Payout ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/payouts/{payoutId}/items [get]
func (h *PayrollHandler) ListPayoutItems(c *gin.Context) {
	items, err := h.periods.ListPayoutItems(c.Request.Context(), c.Param("payoutId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Export godoc
// @Summary Export the payouts of a period
// @Tags Payroll
// @Produce json
// @Param id path int true "Period ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {object} response.Envelope
// @Router /payroll/periods/{id}/export [get]
func (h *PayrollHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.ExportPeriod(c.Request.Context(), id, models.ExportFormat(c.DefaultQuery("format", "csv")), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ExportResponse{
		URL:       result.URL,
		Format:    string(result.Format),
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil)
}

// Preview godoc
// @Summary Calculate one employee's month without saving
// @Tags Payroll
// @Produce json
// @Param citizenId path string true "Citizen ID"
// @Param year query int true "Year"
// @Param month query int true "Month"
// @Success 200 {object} response.Envelope
// @Router /payroll/preview/{citizenId} [get]
func (h *PayrollHandler) Preview(c *gin.Context) {
	citizenID, year, month, err := previewParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.calc.CalculateMonthly(c.Request.Context(), citizenID, year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RetroPreview godoc
// @Summary Calculate retroactive corrections without saving
// @Tags Payroll
// @Produce json
// @Param citizenId path string true "Citizen ID"
// @Param year query int true "Year"
// @Param month query int true "Month"
// @Param lookBack query int false "Months to look back"
// @Success 200 {object} response.Envelope
// @Router /payroll/retro-preview/{citizenId} [get]
func (h *PayrollHandler) RetroPreview(c *gin.Context) {
	citizenID, year, month, err := previewParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	lookBack, err := intQuery(c, "lookBack", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.calc.CalculateRetroactive(c.Request.Context(), citizenID, year, month, lookBack)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func previewParams(c *gin.Context) (string, int, int, error) {
	citizenID := c.Param("citizenId")
	if !citizenIDPattern.MatchString(citizenID) {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "citizenId must be 13 digits")
	}
	now := time.Now()
	year, err := intQuery(c, "year", now.Year())
	if err != nil {
		return "", 0, 0, err
	}
	month, err := intQuery(c, "month", int(now.Month()))
	if err != nil {
		return "", 0, 0, err
	}
	if month < 1 || month > 12 {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	return citizenID, year, month, nil
}
