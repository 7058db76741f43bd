package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

func newEligibilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEligibilityRepositoryListOverlapping(t *testing.T) {
	db, mock, cleanup := newEligibilityRepoMock(t)
	defer cleanup()
	repo := NewEligibilityRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "citizen_id", "master_rate_id", "rate", "effective_date", "expiry_date", "request_id", "created_at"}).
		AddRow(1, "1100000000001", 3, "3000.00", from, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM eligibility_windows")).
		WithArgs("1100000000001", from, to).
		WillReturnRows(rows)

	windows, err := repo.ListOverlapping(context.Background(), "1100000000001", from, to)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	require.Nil(t, windows[0].ExpiryDate)
	require.True(t, windows[0].Rate.Equal(decimal.NewFromInt(3000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEligibilityRepositoryReplaceWindowInTx(t *testing.T) {
	db, mock, cleanup := newEligibilityRepoMock(t)
	defer cleanup()
	repo := NewEligibilityRepository(db)
	effective := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE eligibility_windows SET expiry_date = $2::date - 1")).
		WithArgs("1100000000001", effective).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO eligibility_windows")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.CloseOpenWindows(context.Background(), tx, "1100000000001", effective))
	window := &models.EligibilityWindow{CitizenID: "1100000000001", MasterRateID: 3, Rate: decimal.NewFromInt(5000), EffectiveDate: effective}
	require.NoError(t, repo.CreateWindow(context.Background(), tx, window))
	require.Equal(t, int64(12), window.ID)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
