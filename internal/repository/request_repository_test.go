package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

var requestCols = []string{"id", "citizen_id", "requested_by", "request_type", "master_rate_id", "effective_date", "status", "current_step",
	"reason", "submitted_at", "step_started_at", "updated_at"}

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pts_requests")).WillReturnResult(sqlmock.NewResult(0, 1))
	request := &models.PTSRequest{
		CitizenID: "1100000000001", RequestedBy: "user-1", RequestType: models.RequestTypeNewEntitlement,
		MasterRateID: 3, EffectiveDate: now, Status: models.RequestStatusPending, CurrentStep: 1,
		SubmittedAt: now, StepStartedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), nil, request))
	require.NotEmpty(t, request.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pts_requests WHERE id = $1")).
		WithArgs(request.ID).
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow(request.ID, "1100000000001", "user-1", "NEW_ENTITLEMENT", 3, now, "PENDING", 1, "", now, now, now))
	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, found.Status)
	require.Equal(t, 1, found.CurrentStep)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM pts_requests WHERE status IN ($1) AND current_step = $2")).
		WithArgs("PENDING", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC LIMIT 50 OFFSET 0")).
		WithArgs("PENDING", 2).
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow("req-1", "1100000000001", "user-1", "RATE_CHANGE", 3, now, "PENDING", 2, "", now, now, now))

	list, total, err := repo.List(context.Background(), models.RequestFilter{
		Status: []models.RequestStatus{models.RequestStatusPending},
		Step:   2,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, "req-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStateMissing(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pts_requests SET status")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateState(context.Background(), nil, &models.PTSRequest{ID: "missing"})
	require.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pts_request_actions")).WillReturnResult(sqlmock.NewResult(0, 1))
	action := &models.RequestAction{RequestID: "req-1", Step: 1, ActorID: "user-2", Action: models.ActionApprove}
	require.NoError(t, repo.CreateAction(context.Background(), nil, action))
	require.NotEmpty(t, action.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
