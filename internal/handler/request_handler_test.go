package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/middleware"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type requestServiceMock struct {
	lastQuery    dto.RequestQuery
	lastDecision dto.DecisionPayload
	lastID       string
	approveErr   error
}

func (m *requestServiceMock) Submit(ctx context.Context, req dto.SubmitRequestPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return &models.PTSRequest{ID: "req-1", CitizenID: actor.CitizenID, Status: models.RequestStatusPending, CurrentStep: 1}, nil
}

func (m *requestServiceMock) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.PTSRequest, *models.Pagination, error) {
	m.lastQuery = query
	return []models.PTSRequest{}, &models.Pagination{Page: query.Page, PageSize: query.PageSize}, nil
}

func (m *requestServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RequestDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
}

func (m *requestServiceMock) Approve(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	m.lastID, m.lastDecision = id, req
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	return &models.PTSRequest{ID: id, CurrentStep: 2, Status: models.RequestStatusPending}, nil
}

func (m *requestServiceMock) Reject(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	m.lastID, m.lastDecision = id, req
	return &models.PTSRequest{ID: id, Status: models.RequestStatusRejected}, nil
}

func (m *requestServiceMock) Return(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return &models.PTSRequest{ID: id, Status: models.RequestStatusReturned}, nil
}

func (m *requestServiceMock) Resubmit(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return &models.PTSRequest{ID: id, Status: models.RequestStatusPending}, nil
}

func (m *requestServiceMock) Cancel(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return &models.PTSRequest{ID: id, Status: models.RequestStatusCancelled}, nil
}

func (m *requestServiceMock) MasterRates(ctx context.Context) ([]models.MasterRate, error) {
	return []models.MasterRate{{ID: 5, IsActive: true}}, nil
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestRequestHandlerCreate(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{})
	body, _ := json.Marshal(dto.SubmitRequestPayload{RequestType: models.RequestTypeNewEntitlement, MasterRateID: 5, EffectiveDate: "2024-01-01"})
	c, w := newTestContext(http.MethodPost, "/requests", body, &models.JWTClaims{UserID: "u-1", Role: models.RoleUser, CitizenID: "1100000000001"})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"citizenId":"1100000000001"`)

	c, w = newTestContext(http.MethodPost, "/requests", []byte(`{`), &models.JWTClaims{UserID: "u-1"})
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodPost, "/requests", body, nil)
	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestHandlerListParsesQuery(t *testing.T) {
	svc := &requestServiceMock{}
	handler := NewRequestHandler(svc)
	c, w := newTestContext(http.MethodGet, "/requests?status=pending,%20returned&mine=true&page=2&pageSize=10", nil, &models.JWTClaims{UserID: "u-1"})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending, models.RequestStatusReturned}, svc.lastQuery.Status)
	assert.True(t, svc.lastQuery.Mine)
	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Contains(t, w.Body.String(), `"pagination"`)

	c, w = newTestContext(http.MethodGet, "/requests?page=abc", nil, &models.JWTClaims{UserID: "u-1"})
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerDecisions(t *testing.T) {
	svc := &requestServiceMock{}
	handler := NewRequestHandler(svc)
	approver := &models.JWTClaims{UserID: "ward", Role: models.RoleWardHead}

	c, w := newTestContext(http.MethodPost, "/requests/req-1/approve", nil, approver)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", svc.lastID)
	assert.Empty(t, svc.lastDecision.Comment)

	c, w = newTestContext(http.MethodPost, "/requests/req-1/reject", []byte(`{"comment":"not eligible"}`), approver)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not eligible", svc.lastDecision.Comment)

	svc.approveErr = appErrors.Clone(appErrors.ErrInvalidTransition, "request is already approved")
	c, w = newTestContext(http.MethodPost, "/requests/req-1/approve", []byte(`{}`), approver)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Approve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

func TestRequestHandlerGetNotFound(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{})
	c, w := newTestContext(http.MethodGet, "/requests/missing", nil, &models.JWTClaims{UserID: "u-1"})
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
