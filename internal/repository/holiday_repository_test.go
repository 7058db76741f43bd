package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

func newHolidayRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestHolidayRepositoryCrud(t *testing.T) {
	db, mock, cleanup := newHolidayRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)
	date := time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO holidays")).
		WithArgs(date, "Songkran").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	holiday := &models.Holiday{HolidayDate: date, Name: "Songkran"}
	require.NoError(t, repo.Create(context.Background(), holiday))
	require.Equal(t, int64(5), holiday.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, holiday_date, name FROM holidays WHERE holiday_date BETWEEN")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "holiday_date", "name"}).AddRow(5, date, "Songkran"))
	list, err := repo.ListBetween(context.Background(), date.AddDate(0, 0, -1), date)
	require.NoError(t, err)
	require.Len(t, list, 1)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM holidays")).WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	deleted, err := repo.Delete(context.Background(), 99)
	require.NoError(t, err)
	require.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
