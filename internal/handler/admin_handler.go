package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
	"github.com/noah-isme/pts-payroll-api/pkg/response"
)

type syncService interface {
	SyncAll(ctx context.Context, actorID string) (*dto.SyncSummary, error)
}

type inboxService interface {
	Inbox(ctx context.Context, role models.UserRole, limit int) ([]models.Notification, error)
}

// AdminHandler exposes HR synchronisation and the notification inbox.
type AdminHandler struct {
	sync  syncService
	inbox inboxService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(sync syncService, inbox inboxService) *AdminHandler {
	return &AdminHandler{sync: sync, inbox: inbox}
}

// Sync godoc
// @Summary Pull HR staging data
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /admin/sync [post]
func (h *AdminHandler) Sync(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.sync.SyncAll(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Notifications godoc
// @Summary Notifications for the caller's role
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *AdminHandler) Notifications(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.inbox.Inbox(c.Request.Context(), claims.Role, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
