package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newSyncRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSyncRepositoryRunStepsInTransaction(t *testing.T) {
	db, mock, cleanup := newSyncRepoMock(t)
	defer cleanup()
	repo := NewSyncRepository(db)
	tr := NewTransactor(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employee_movements")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	counts := map[string]int64{}
	err := tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		for _, step := range SyncSteps[:2] {
			n, err := repo.Run(context.Background(), tx, step)
			if err != nil {
				return err
			}
			counts[step.Name] = n
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"employees": 12, "movements": 3}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newSyncRepoMock(t)
	defer cleanup()
	tr := NewTransactor(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
