package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/payroll"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest) error
	GetByID(ctx context.Context, id string) (*models.PTSRequest, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PTSRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.PTSRequest, int, error)
	UpdateState(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest) error
	CreateAction(ctx context.Context, tx *sqlx.Tx, action *models.RequestAction) error
	ListActions(ctx context.Context, requestID string) ([]models.RequestAction, error)
}

type eligibilityWriter interface {
	GetMasterRate(ctx context.Context, id int64) (*models.MasterRate, error)
	ListMasterRates(ctx context.Context, activeOnly bool) ([]models.MasterRate, error)
	CloseOpenWindows(ctx context.Context, tx *sqlx.Tx, citizenID string, effective time.Time) error
	CreateWindow(ctx context.Context, tx *sqlx.Tx, window *models.EligibilityWindow) error
}

// RequestService drives PTS requests through the six-step approval chain.
type RequestService struct {
	repo        requestStore
	eligibility eligibilityWriter
	tx          txRunner
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, eligibility eligibilityWriter, tx txRunner, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{
		repo:        repo,
		eligibility: eligibility,
		tx:          tx,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MasterRates lists the active rate table.
func (s *RequestService) MasterRates(ctx context.Context) ([]models.MasterRate, error) {
	rates, err := s.eligibility.ListMasterRates(ctx, true)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list master rates")
	}
	return rates, nil
}

// Submit files a new request at step 1.
func (s *RequestService) Submit(ctx context.Context, req dto.SubmitRequestPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	citizenID := actor.CitizenID
	if req.CitizenID != "" && req.CitizenID != actor.CitizenID {
		if actor.Role != models.RoleAdmin && actor.Role != models.RolePTSOfficer {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only officers may file for another employee")
		}
		citizenID = req.CitizenID
	}
	if citizenID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "account is not linked to an employee")
	}

	effective, err := time.Parse(payroll.DateLayout, req.EffectiveDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate must be YYYY-MM-DD")
	}
	rate, err := s.eligibility.GetMasterRate(ctx, req.MasterRateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "master rate not found")
		}
		return nil, appErrors.Internal(err, "failed to load master rate")
	}
	if !rate.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "master rate is not active")
	}

	now := s.now()
	request := &models.PTSRequest{
		CitizenID:     citizenID,
		RequestedBy:   actor.UserID,
		RequestType:   req.RequestType,
		MasterRateID:  rate.ID,
		EffectiveDate: effective,
		Status:        models.RequestStatusPending,
		CurrentStep:   1,
		Reason:        strings.TrimSpace(req.Reason),
		SubmittedAt:   now,
		StepStartedAt: now,
		UpdatedAt:     now,
	}
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, request); err != nil {
			return err
		}
		return s.repo.CreateAction(ctx, tx, &models.RequestAction{
			RequestID: request.ID,
			Step:      1,
			ActorID:   actor.UserID,
			Action:    models.ActionSubmit,
			Comment:   optionalString(req.Reason),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to submit request")
	}

	s.record(ctx, actor.UserID, models.AuditActionRequestSubmit, models.ActionSubmit, request, "")
	return request, nil
}

// List returns requests visible to the actor. Approvers see the queue of their step unless they
// ask for their own requests; plain users only ever see their own.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.PTSRequest, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	filter := models.RequestFilter{
		Status:    query.Status,
		CitizenID: query.CitizenID,
		Limit:     size,
		Offset:    (page - 1) * size,
	}

	switch step := models.StepForRole(actor.Role); {
	case actor.Role == models.RoleAdmin:
		if query.Mine {
			filter.RequestedBy = actor.UserID
		}
	case step > 0 && !query.Mine:
		filter.Step = step
		filter.Status = []models.RequestStatus{models.RequestStatusPending}
	default:
		filter.RequestedBy = actor.UserID
		filter.CitizenID = ""
	}

	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list requests")
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a request with its history. Requesters see their own; approvers and admins see all.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RequestDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Internal(err, "failed to load request")
	}
	if actor.Role == models.RoleUser && request.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	actions, err := s.repo.ListActions(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load request history")
	}
	return &models.RequestDetail{PTSRequest: *request, Actions: actions}, nil
}

// Approve advances the request one step. Approval at the final step marks it APPROVED and
// replaces the employee's open eligibility window with one at the requested rate.
func (s *RequestService) Approve(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return s.transition(ctx, id, models.ActionApprove, req.Comment, actor, func(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error {
		if err := s.requireStepRole(request, actor); err != nil {
			return err
		}
		if request.CurrentStep < models.FinalApprovalStep {
			request.CurrentStep++
			request.StepStartedAt = now
			return nil
		}
		request.Status = models.RequestStatusApproved
		return s.grantEligibility(ctx, tx, request, now)
	})
}

// Reject ends the request.
func (s *RequestService) Reject(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	if strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment is required to reject")
	}
	return s.transition(ctx, id, models.ActionReject, req.Comment, actor, func(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error {
		if err := s.requireStepRole(request, actor); err != nil {
			return err
		}
		request.Status = models.RequestStatusRejected
		return nil
	})
}

// Return sends the request back to the requester for changes.
func (s *RequestService) Return(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	if strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment is required to return")
	}
	return s.transition(ctx, id, models.ActionReturn, req.Comment, actor, func(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error {
		if err := s.requireStepRole(request, actor); err != nil {
			return err
		}
		request.Status = models.RequestStatusReturned
		request.StepStartedAt = now
		return nil
	})
}

// Resubmit restarts a RETURNED request at step 1.
func (s *RequestService) Resubmit(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return s.transition(ctx, id, models.ActionResubmit, req.Comment, actor, func(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error {
		if request.RequestedBy != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the requester may resubmit")
		}
		if request.Status != models.RequestStatusReturned {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "only returned requests can be resubmitted")
		}
		request.Status = models.RequestStatusPending
		request.CurrentStep = 1
		request.StepStartedAt = now
		return nil
	})
}

// Cancel withdraws a request that no approver has acted on yet.
func (s *RequestService) Cancel(ctx context.Context, id string, req dto.DecisionPayload, actor *models.JWTClaims) (*models.PTSRequest, error) {
	return s.transition(ctx, id, models.ActionCancel, req.Comment, actor, func(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error {
		if request.RequestedBy != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the requester may cancel")
		}
		if request.CurrentStep != 1 {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "request is already under review")
		}
		request.Status = models.RequestStatusCancelled
		return nil
	})
}

type transitionFunc func(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error

// transition locks the request row, applies fn and records the action in one transaction.
func (s *RequestService) transition(ctx context.Context, id string, action models.RequestActionType, comment string, actor *models.JWTClaims, fn transitionFunc) (*models.PTSRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	var request *models.PTSRequest
	var previous models.PTSRequest
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "request not found")
			}
			return err
		}
		if current.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request is already %s", strings.ToLower(string(current.Status))))
		}
		if current.Status != models.RequestStatusPending && action != models.ActionResubmit {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "request is not pending")
		}

		previous = *current
		now := s.now()
		if err := fn(ctx, tx, current, now); err != nil {
			return err
		}
		current.UpdatedAt = now
		if err := s.repo.UpdateState(ctx, tx, current); err != nil {
			return err
		}
		if err := s.repo.CreateAction(ctx, tx, &models.RequestAction{
			RequestID: current.ID,
			Step:      previous.CurrentStep,
			ActorID:   actor.UserID,
			Action:    action,
			Comment:   optionalString(comment),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		request = current
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Internal(err, "failed to update request")
	}

	s.record(ctx, actor.UserID, auditActionFor(action), action, request, fmt.Sprintf(`{"status":%q,"step":%d}`, previous.Status, previous.CurrentStep))
	return request, nil
}

func (s *RequestService) requireStepRole(request *models.PTSRequest, actor *models.JWTClaims) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if models.ApprovalSteps[request.CurrentStep] != actor.Role {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("step %d must be handled by %s", request.CurrentStep, models.ApprovalSteps[request.CurrentStep]))
	}
	return nil
}

func (s *RequestService) grantEligibility(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest, now time.Time) error {
	rate, err := s.eligibility.GetMasterRate(ctx, request.MasterRateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "master rate no longer exists")
		}
		return err
	}
	if err := s.eligibility.CloseOpenWindows(ctx, tx, request.CitizenID, request.EffectiveDate); err != nil {
		return err
	}
	requestID := request.ID
	return s.eligibility.CreateWindow(ctx, tx, &models.EligibilityWindow{
		CitizenID:     request.CitizenID,
		MasterRateID:  rate.ID,
		Rate:          rate.Amount,
		EffectiveDate: request.EffectiveDate,
		RequestID:     &requestID,
		CreatedAt:     now,
	})
}

func (s *RequestService) record(ctx context.Context, actorID, auditAction string, action models.RequestActionType, request *models.PTSRequest, oldValues string) {
	s.metrics.RecordTransition(string(action))
	log := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     auditAction,
		Resource:   "pts_request",
		ResourceID: &request.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"step":%d}`, request.Status, request.CurrentStep)),
	}
	if oldValues != "" {
		log.OldValues = []byte(oldValues)
	}
	emitAudit(ctx, s.audit, s.logger, log)
}

func auditActionFor(action models.RequestActionType) string {
	switch action {
	case models.ActionApprove:
		return models.AuditActionRequestApprove
	case models.ActionReject:
		return models.AuditActionRequestReject
	case models.ActionReturn:
		return models.AuditActionRequestReturn
	case models.ActionResubmit:
		return models.AuditActionRequestResubmit
	case models.ActionCancel:
		return models.AuditActionRequestCancel
	default:
		return models.AuditActionRequestSubmit
	}
}
