package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
	"github.com/noah-isme/pts-payroll-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, req dto.SubmitRequestPayload, actor *models.JWTClaims) (*models.PTSRequest, error)
	List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.PTSRequest, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RequestDetail, error)
	Approve(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error)
	Reject(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error)
	Return(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error)
	Resubmit(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error)
	Cancel(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error)
	MasterRates(ctx context.Context) ([]models.MasterRate, error)
}

// RequestHandler exposes the PTS request workflow.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create godoc
// @Summary Submit a PTS request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	created, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, nil)
}

// List godoc
// @Summary List PTS requests
// @Description Approvers see the pending queue of their step unless mine=true.
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param citizenId query string false "Citizen ID"
// @Param mine query bool false "Only requests I submitted"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := intQuery(c, "pageSize", 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.RequestQuery{
		CitizenID: strings.TrimSpace(c.Query("citizenId")),
		Mine:      c.Query("mine") == "true",
		Page:      page,
		PageSize:  size,
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			query.Status = append(query.Status, models.RequestStatus(part))
		}
	}
	requests, pagination, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get a PTS request with its history
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Approve godoc
// @Summary Approve the current step
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionPayload false "Comment"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionPayload true "Comment"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

// Return godoc
// @Summary Return a request to the requester
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionPayload true "Comment"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/return [post]
func (h *RequestHandler) Return(c *gin.Context) {
	h.decide(c, h.service.Return)
}

// Resubmit godoc
// @Summary Resubmit a returned request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/resubmit [post]
func (h *RequestHandler) Resubmit(c *gin.Context) {
	h.decide(c, h.service.Resubmit)
}

// Cancel godoc
// @Summary Cancel a request before review
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.decide(c, h.service.Cancel)
}

// MasterRates godoc
// @Summary List active master rates
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /master-rates [get]
func (h *RequestHandler) MasterRates(c *gin.Context) {
	rates, err := h.service.MasterRates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rates, nil)
}

type decisionFunc func(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error)

func (h *RequestHandler) decide(c *gin.Context, fn decisionFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionPayload
	// the body is optional for approve, resubmit and cancel
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return
		}
	}
	updated, err := fn(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
