package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

const requestColumns = `id, citizen_id, requested_by, request_type, master_rate_id, effective_date, status, current_step,
       reason, submitted_at, step_started_at, updated_at`

// RequestRepository persists PTS requests and their action history.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request.
func (r *RequestRepository) Create(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	const query = `INSERT INTO pts_requests
	(id, citizen_id, requested_by, request_type, master_rate_id, effective_date, status, current_step, reason, submitted_at, step_started_at, updated_at)
	VALUES (:id, :citizen_id, :requested_by, :request_type, :master_rate_id, :effective_date, :status, :current_step, :reason, :submitted_at, :step_started_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, extOr(r.db, tx), query, request); err != nil {
		return fmt.Errorf("create pts request: %w", err)
	}
	return nil
}

// GetByID fetches a request or sql.ErrNoRows.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.PTSRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM pts_requests WHERE id = $1`
	var request models.PTSRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get pts request: %w", err)
	}
	return &request, nil
}

// GetForUpdate locks the request row for the remainder of the transaction.
func (r *RequestRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PTSRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM pts_requests WHERE id = $1 FOR UPDATE`
	var request models.PTSRequest
	if err := sqlx.GetContext(ctx, extOr(r.db, tx), &request, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock pts request: %w", err)
	}
	return &request, nil
}

// List returns requests matching the filter, newest first, plus the total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.PTSRequest, int, error) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Step > 0 {
		args = append(args, filter.Step)
		conditions = append(conditions, fmt.Sprintf("current_step = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if filter.CitizenID != "" {
		args = append(args, filter.CitizenID)
		conditions = append(conditions, fmt.Sprintf("citizen_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM pts_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count pts requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM pts_requests%s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", requestColumns, where, limit, offset)

	var requests []models.PTSRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list pts requests: %w", err)
	}
	return requests, total, nil
}

// ListPending returns every request waiting at an approval step, oldest step first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]models.PTSRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM pts_requests WHERE status = $1 ORDER BY step_started_at ASC`
	var requests []models.PTSRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.RequestStatusPending); err != nil {
		return nil, fmt.Errorf("list pending pts requests: %w", err)
	}
	return requests, nil
}

// UpdateState persists the workflow position of a request.
func (r *RequestRepository) UpdateState(ctx context.Context, tx *sqlx.Tx, request *models.PTSRequest) error {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE pts_requests SET status = :status, current_step = :current_step, step_started_at = :step_started_at,
	reason = :reason, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, extOr(r.db, tx), query, request)
	if err != nil {
		return fmt.Errorf("update pts request: %w", err)
	}
	return expectOneRow(result, "update pts request")
}

// CreateAction appends to the request history.
func (r *RequestRepository) CreateAction(ctx context.Context, tx *sqlx.Tx, action *models.RequestAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pts_request_actions (id, request_id, step, actor_id, action, comment, created_at)
	VALUES (:id, :request_id, :step, :actor_id, :action, :comment, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, extOr(r.db, tx), query, action); err != nil {
		return fmt.Errorf("create pts request action: %w", err)
	}
	return nil
}

// ListActions returns the request history in chronological order.
func (r *RequestRepository) ListActions(ctx context.Context, requestID string) ([]models.RequestAction, error) {
	const query = `SELECT id, request_id, step, actor_id, action, comment, created_at
FROM pts_request_actions WHERE request_id = $1 ORDER BY created_at ASC`
	var actions []models.RequestAction
	if err := r.db.SelectContext(ctx, &actions, query, requestID); err != nil {
		return nil, fmt.Errorf("list pts request actions: %w", err)
	}
	return actions, nil
}
