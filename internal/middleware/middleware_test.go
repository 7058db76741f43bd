package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/service"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type validatorStub struct{}

func (validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "director":
		return &models.JWTClaims{UserID: "d-1", Role: models.RoleDirector}, nil
	case "user":
		return &models.JWTClaims{UserID: "u-1", Role: models.RoleUser}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
}

type auditWriterStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditWriterStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/protected", handlers...)
	return r
}

func perform(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	r := newRouter(JWT(validatorStub{}), RequireApprover())

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic director", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"plain user", "Bearer user", http.StatusForbidden},
		{"approver", "Bearer director", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, perform(r, tt.auth).Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &auditWriterStub{}
	r := newRouter(JWT(validatorStub{}), Audit(writer, nil, models.AuditActionExportDownload, "export"))

	require.Equal(t, http.StatusOK, perform(r, "Bearer user").Code)
	require.Len(t, writer.logs, 1)
	assert.Equal(t, "u-1", *writer.logs[0].UserID)
	assert.Contains(t, string(writer.logs[0].NewValues), `"status":200`)

	perform(r, "Bearer nope")
	assert.Len(t, writer.logs, 1)

	writer.err = errors.New("insert failed")
	assert.Equal(t, http.StatusOK, perform(r, "Bearer user").Code)
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/requests/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, path := range []string{"/requests/r-1", "/requests/r-2", "/wp-login.php", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/requests/:id",status="200"} 2`)
	assert.Contains(t, body, `path="unmatched",status="404"`)
	assert.NotContains(t, body, `path="/metrics"`)
}
