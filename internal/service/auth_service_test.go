package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthServiceForTest(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "pts-payroll-api",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	citizen := "1100000000001"
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID: "123", Email: "nurse@example.com", PasswordHash: string(password), Active: true,
		Role: models.RoleUser, CitizenID: &citizen,
	}}
	svc := newAuthServiceForTest(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "nurse@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, citizen, res.User.CitizenID)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, citizen, claims.CitizenID)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)

	tests := []struct {
		name string
		repo *mockAuthRepo
		req  models.LoginRequest
		want *appErrors.Error
	}{
		{
			name: "invalid payload",
			repo: &mockAuthRepo{},
			req:  models.LoginRequest{Email: "not-an-email", Password: "x"},
			want: appErrors.ErrValidation,
		},
		{
			name: "unknown user",
			repo: &mockAuthRepo{findByEmailErr: sql.ErrNoRows},
			req:  models.LoginRequest{Email: "ghost@example.com", Password: "password"},
			want: appErrors.ErrInvalidCredentials,
		},
		{
			name: "inactive account",
			repo: &mockAuthRepo{userByEmail: &models.User{ID: "1", PasswordHash: string(password), Active: false}},
			req:  models.LoginRequest{Email: "user@example.com", Password: "password"},
			want: appErrors.ErrInactiveAccount,
		},
		{
			name: "wrong password",
			repo: &mockAuthRepo{userByEmail: &models.User{ID: "1", PasswordHash: string(password), Active: true}},
			req:  models.LoginRequest{Email: "user@example.com", Password: "nope"},
			want: appErrors.ErrInvalidCredentials,
		},
		{
			name: "store failure",
			repo: &mockAuthRepo{findByEmailErr: errors.New("db down")},
			req:  models.LoginRequest{Email: "user@example.com", Password: "password"},
			want: appErrors.ErrInternal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newAuthServiceForTest(tc.repo).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "1", PasswordHash: string(password), Active: true, Role: models.RoleAdmin}}
	res, err := newAuthServiceForTest(repo).Login(context.Background(), models.LoginRequest{Email: "a@example.com", Password: "password"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	_, err = other.ValidateToken(res.AccessToken)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
