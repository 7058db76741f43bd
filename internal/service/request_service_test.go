package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type requestStoreStub struct {
	requests   map[string]*models.PTSRequest
	actions    []models.RequestAction
	lastFilter models.RequestFilter
	seq        int
}

func newRequestStoreStub() *requestStoreStub {
	return &requestStoreStub{requests: make(map[string]*models.PTSRequest)}
}

func (s *requestStoreStub) Create(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest) error {
	s.seq++
	request.ID = fmt.Sprintf("req-%d", s.seq)
	copy := *request
	s.requests[request.ID] = &copy
	return nil
}

func (s *requestStoreStub) GetByID(ctx context.Context, id string) (*models.PTSRequest, error) {
	if r, ok := s.requests[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestStoreStub) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PTSRequest, error) {
	return s.GetByID(ctx, id)
}

func (s *requestStoreStub) List(ctx context.Context, filter models.RequestFilter) ([]models.PTSRequest, int, error) {
	s.lastFilter = filter
	var out []models.PTSRequest
	for _, r := range s.requests {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (s *requestStoreStub) UpdateState(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest) error {
	copy := *request
	s.requests[request.ID] = &copy
	return nil
}

func (s *requestStoreStub) CreateAction(ctx context.Context, tx *sqlx.Tx, action *models.RequestAction) error {
	s.actions = append(s.actions, *action)
	return nil
}

func (s *requestStoreStub) ListActions(ctx context.Context, requestID string) ([]models.RequestAction, error) {
	var out []models.RequestAction
	for _, a := range s.actions {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

type eligibilityStub struct {
	rates   map[int64]*models.MasterRate
	closed  []string
	windows []models.EligibilityWindow
}

func newEligibilityStub() *eligibilityStub {
	return &eligibilityStub{rates: map[int64]*models.MasterRate{
		5: {ID: 5, ProfessionCode: "NURSE", Amount: decimal.NewFromInt(1500), IsActive: true},
		9: {ID: 9, ProfessionCode: "NURSE", Amount: decimal.NewFromInt(1000), IsActive: false},
	}}
}

func (e *eligibilityStub) GetMasterRate(ctx context.Context, id int64) (*models.MasterRate, error) {
	if r, ok := e.rates[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (e *eligibilityStub) ListMasterRates(ctx context.Context, activeOnly bool) ([]models.MasterRate, error) {
	var out []models.MasterRate
	for _, r := range e.rates {
		if !activeOnly || r.IsActive {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (e *eligibilityStub) CloseOpenWindows(ctx context.Context, tx *sqlx.Tx, citizenID string, effective time.Time) error {
	e.closed = append(e.closed, citizenID+"@"+effective.Format("2006-01-02"))
	return nil
}

func (e *eligibilityStub) CreateWindow(ctx context.Context, tx *sqlx.Tx, window *models.EligibilityWindow) error {
	e.windows = append(e.windows, *window)
	return nil
}

func claims(userID string, role models.UserRole, citizenID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: role, CitizenID: citizenID}
}

func newRequestServiceForTest() (*RequestService, *requestStoreStub, *eligibilityStub, *auditStub) {
	store := newRequestStoreStub()
	elig := newEligibilityStub()
	audit := &auditStub{}
	svc := NewRequestService(store, elig, &txRunnerStub{}, audit, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store, elig, audit
}

func submitPayload() dto.SubmitRequestPayload {
	return dto.SubmitRequestPayload{
		RequestType:   models.RequestTypeNewEntitlement,
		MasterRateID:  5,
		EffectiveDate: "2024-02-01",
		Reason:        "moved to ICU",
	}
}

var approvers = []*models.JWTClaims{
	claims("ward", models.RoleWardHead, ""),
	claims("dept", models.RoleDeptHead, ""),
	claims("officer", models.RolePTSOfficer, ""),
	claims("hr", models.RoleHRHead, ""),
	claims("finance", models.RoleFinanceHead, ""),
	claims("director", models.RoleDirector, ""),
}

func TestRequestServiceSubmit(t *testing.T) {
	svc, store, _, audit := newRequestServiceForTest()
	ctx := context.Background()
	user := claims("u-1", models.RoleUser, "1100000000001")

	req, err := svc.Submit(ctx, submitPayload(), user)
	require.NoError(t, err)
	assert.Equal(t, "1100000000001", req.CitizenID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 1, req.CurrentStep)
	require.Len(t, store.actions, 1)
	assert.Equal(t, models.ActionSubmit, store.actions[0].Action)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestSubmit, audit.logs[0].Action)

	payload := submitPayload()
	payload.MasterRateID = 9
	_, err = svc.Submit(ctx, payload, user)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	payload = submitPayload()
	payload.EffectiveDate = "01/02/2024"
	_, err = svc.Submit(ctx, payload, user)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	payload = submitPayload()
	payload.CitizenID = "3100000000009"
	_, err = svc.Submit(ctx, payload, user)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	onBehalf, err := svc.Submit(ctx, payload, claims("officer", models.RolePTSOfficer, ""))
	require.NoError(t, err)
	assert.Equal(t, "3100000000009", onBehalf.CitizenID)

	_, err = svc.Submit(ctx, submitPayload(), claims("u-2", models.RoleUser, ""))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRequestServiceFullApprovalCreatesWindow(t *testing.T) {
	svc, store, elig, _ := newRequestServiceForTest()
	ctx := context.Background()
	req, err := svc.Submit(ctx, submitPayload(), claims("u-1", models.RoleUser, "1100000000001"))
	require.NoError(t, err)

	for i, approver := range approvers {
		updated, err := svc.Approve(ctx, req.ID, dto.DecisionPayload{}, approver)
		require.NoError(t, err, "step %d", i+1)
		if i < len(approvers)-1 {
			assert.Equal(t, i+2, updated.CurrentStep)
			assert.Equal(t, models.RequestStatusPending, updated.Status)
			assert.Empty(t, elig.windows)
		} else {
			assert.Equal(t, models.RequestStatusApproved, updated.Status)
		}
	}

	require.Equal(t, []string{"1100000000001@2024-02-01"}, elig.closed)
	require.Len(t, elig.windows, 1)
	window := elig.windows[0]
	assert.Equal(t, "1500", window.Rate.String())
	assert.Equal(t, int64(5), window.MasterRateID)
	require.NotNil(t, window.RequestID)
	assert.Equal(t, req.ID, *window.RequestID)
	assert.Nil(t, window.ExpiryDate)

	// submit + six approvals, each recorded at the step it was taken on
	require.Len(t, store.actions, 7)
	assert.Equal(t, 6, store.actions[6].Step)

	_, err = svc.Approve(ctx, req.ID, dto.DecisionPayload{}, approvers[5])
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestRequestServiceApproveRequiresStepRole(t *testing.T) {
	svc, _, _, _ := newRequestServiceForTest()
	ctx := context.Background()
	req, err := svc.Submit(ctx, submitPayload(), claims("u-1", models.RoleUser, "1100000000001"))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, req.ID, dto.DecisionPayload{}, approvers[1])
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Approve(ctx, req.ID, dto.DecisionPayload{}, claims("u-1", models.RoleUser, ""))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	updated, err := svc.Approve(ctx, req.ID, dto.DecisionPayload{}, claims("root", models.RoleAdmin, ""))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentStep)

	_, err = svc.Approve(ctx, "missing", dto.DecisionPayload{}, approvers[0])
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRequestServiceReturnAndResubmit(t *testing.T) {
	svc, _, _, audit := newRequestServiceForTest()
	ctx := context.Background()
	requester := claims("u-1", models.RoleUser, "1100000000001")
	req, err := svc.Submit(ctx, submitPayload(), requester)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, dto.DecisionPayload{}, approvers[0])
	require.NoError(t, err)

	_, err = svc.Return(ctx, req.ID, dto.DecisionPayload{}, approvers[1])
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	returned, err := svc.Return(ctx, req.ID, dto.DecisionPayload{Comment: "missing certificate"}, approvers[1])
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusReturned, returned.Status)
	assert.Equal(t, 2, returned.CurrentStep)

	_, err = svc.Approve(ctx, req.ID, dto.DecisionPayload{}, approvers[1])
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = svc.Resubmit(ctx, req.ID, dto.DecisionPayload{}, claims("u-9", models.RoleUser, ""))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	resubmitted, err := svc.Resubmit(ctx, req.ID, dto.DecisionPayload{Comment: "attached"}, requester)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, resubmitted.Status)
	assert.Equal(t, 1, resubmitted.CurrentStep)

	_, err = svc.Resubmit(ctx, req.ID, dto.DecisionPayload{}, requester)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	last := audit.logs[len(audit.logs)-1]
	assert.Equal(t, models.AuditActionRequestResubmit, last.Action)
	assert.JSONEq(t, `{"status":"RETURNED","step":2}`, string(last.OldValues))
}

func TestRequestServiceRejectIsTerminal(t *testing.T) {
	svc, _, _, _ := newRequestServiceForTest()
	ctx := context.Background()
	requester := claims("u-1", models.RoleUser, "1100000000001")
	req, err := svc.Submit(ctx, submitPayload(), requester)
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, req.ID, dto.DecisionPayload{Comment: "not eligible"}, approvers[0])
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)

	_, err = svc.Cancel(ctx, req.ID, dto.DecisionPayload{}, requester)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.Resubmit(ctx, req.ID, dto.DecisionPayload{}, requester)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestRequestServiceCancelOnlyBeforeReview(t *testing.T) {
	svc, _, _, _ := newRequestServiceForTest()
	ctx := context.Background()
	requester := claims("u-1", models.RoleUser, "1100000000001")

	first, err := svc.Submit(ctx, submitPayload(), requester)
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, first.ID, dto.DecisionPayload{}, requester)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, cancelled.Status)

	second, err := svc.Submit(ctx, submitPayload(), requester)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, second.ID, dto.DecisionPayload{}, approvers[0])
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, second.ID, dto.DecisionPayload{}, requester)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestRequestServiceListScopesByRole(t *testing.T) {
	svc, store, _, _ := newRequestServiceForTest()
	ctx := context.Background()

	_, page, err := svc.List(ctx, dto.RequestQuery{CitizenID: "3100000000009"}, claims("u-1", models.RoleUser, ""))
	require.NoError(t, err)
	assert.Equal(t, "u-1", store.lastFilter.RequestedBy)
	assert.Empty(t, store.lastFilter.CitizenID)
	assert.Equal(t, 50, page.PageSize)

	_, _, err = svc.List(ctx, dto.RequestQuery{Page: 3, PageSize: 20}, approvers[3])
	require.NoError(t, err)
	assert.Equal(t, 4, store.lastFilter.Step)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending}, store.lastFilter.Status)
	assert.Equal(t, 40, store.lastFilter.Offset)

	_, _, err = svc.List(ctx, dto.RequestQuery{Mine: true}, approvers[3])
	require.NoError(t, err)
	assert.Equal(t, "hr", store.lastFilter.RequestedBy)
	assert.Zero(t, store.lastFilter.Step)

	_, _, err = svc.List(ctx, dto.RequestQuery{CitizenID: "3100000000009"}, claims("root", models.RoleAdmin, ""))
	require.NoError(t, err)
	assert.Equal(t, "3100000000009", store.lastFilter.CitizenID)
	assert.Empty(t, store.lastFilter.RequestedBy)
}

func TestRequestServiceGetHidesOthersRequests(t *testing.T) {
	svc, _, _, _ := newRequestServiceForTest()
	ctx := context.Background()
	req, err := svc.Submit(ctx, submitPayload(), claims("u-1", models.RoleUser, "1100000000001"))
	require.NoError(t, err)

	detail, err := svc.Get(ctx, req.ID, claims("u-1", models.RoleUser, ""))
	require.NoError(t, err)
	assert.Len(t, detail.Actions, 1)

	_, err = svc.Get(ctx, req.ID, claims("u-2", models.RoleUser, ""))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(ctx, req.ID, approvers[2])
	assert.NoError(t, err)
}
