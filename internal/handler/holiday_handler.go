package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
	"github.com/noah-isme/pts-payroll-api/pkg/response"
)

type holidayService interface {
	List(ctx context.Context, year int) ([]models.Holiday, error)
	Create(ctx context.Context, req dto.CreateHolidayRequest, actorID string) (*models.Holiday, error)
	Delete(ctx context.Context, id int64, actorID string) error
}

// HolidayHandler manages the holiday calendar.
type HolidayHandler struct {
	service holidayService
}

// NewHolidayHandler constructs the handler.
func NewHolidayHandler(service holidayService) *HolidayHandler {
	return &HolidayHandler{service: service}
}

// List godoc
// @Summary List holidays of a year
// @Tags Holidays
// @Produce json
// @Param year query int false "Year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	year, err := intQuery(c, "year", time.Now().Year())
	if err != nil {
		response.Error(c, err)
		return
	}
	holidays, err := h.service.List(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// Create godoc
// @Summary Add a holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body dto.CreateHolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid holiday payload"))
		return
	}
	holiday, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, holiday, nil)
}

// Delete godoc
// @Summary Remove a holiday
// @Tags Holidays
// @Param id path int true "Holiday ID"
// @Success 204
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
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
	if err := h.service.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
