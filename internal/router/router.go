// Package router assembles the gin engine and the route table.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/handler"
	"github.com/noah-isme/pts-payroll-api/internal/middleware"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/service"
	"github.com/noah-isme/pts-payroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pts-payroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pts-payroll-api/pkg/middleware/requestid"
)

// Options carries everything the route table needs.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool

	Logger  *zap.Logger
	Metrics *service.MetricsService
	Tokens  middleware.TokenValidator
	Audit   middleware.AuditWriter

	Auth     *handler.AuthHandler
	Requests *handler.RequestHandler
	Payroll  *handler.PayrollHandler
	Holidays *handler.HolidayHandler
	Admin    *handler.AdminHandler
	Users    *handler.UserHandler
	Exports  *handler.ExportHandler
	Health   *handler.MetricsHandler
}

// New builds the gin engine with middleware and all routes registered.
func New(opts Options) *gin.Engine {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	if opts.Logger != nil {
		r.Use(logger.GinMiddleware(opts.Logger))
	}
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/metrics", "/health"))

	r.GET("/health", opts.Health.Health)
	r.GET("/ready", opts.Health.Ready)
	r.GET("/metrics", opts.Health.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.POST("/auth/login", opts.Auth.Login)
	api.GET("/exports/:token", middleware.Audit(opts.Audit, opts.Logger, models.AuditActionExportDownload, "export"), opts.Exports.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(opts.Tokens))
	protected.GET("/auth/me", opts.Auth.Me)
	protected.GET("/master-rates", opts.Requests.MasterRates)
	protected.GET("/notifications", opts.Admin.Notifications)

	requests := protected.Group("/requests")
	{
		requests.POST("", opts.Requests.Create)
		requests.GET("", opts.Requests.List)
		requests.GET("/:id", opts.Requests.Get)
		requests.POST("/:id/resubmit", opts.Requests.Resubmit)
		requests.POST("/:id/cancel", opts.Requests.Cancel)

		approvers := requests.Group("", middleware.RequireApprover())
		approvers.POST("/:id/approve", opts.Requests.Approve)
		approvers.POST("/:id/reject", opts.Requests.Reject)
		approvers.POST("/:id/return", opts.Requests.Return)
	}

	protected.GET("/holidays", opts.Holidays.List)
	calendarAdmins := protected.Group("/holidays", middleware.RequireRoles(models.RoleAdmin, models.RoleHRHead, models.RolePTSOfficer))
	{
		calendarAdmins.POST("", opts.Holidays.Create)
		calendarAdmins.DELETE("/:id", opts.Holidays.Delete)
	}

	payroll := protected.Group("/payroll", middleware.RequireRoles(models.RoleAdmin, models.RolePTSOfficer, models.RoleHRHead, models.RoleFinanceHead, models.RoleDirector))
	{
		payroll.GET("/periods", opts.Payroll.ListPeriods)
		payroll.GET("/periods/:id", opts.Payroll.GetPeriod)
		payroll.GET("/periods/:id/payouts", opts.Payroll.ListPayouts)
		payroll.GET("/periods/:id/export", opts.Payroll.Export)
		payroll.GET("/payouts/:payoutId/items", opts.Payroll.ListPayoutItems)
		payroll.GET("/preview/:citizenId", opts.Payroll.Preview)
		payroll.GET("/retro-preview/:citizenId", opts.Payroll.RetroPreview)

		operators := payroll.Group("", middleware.RequireRoles(models.RoleAdmin, models.RolePTSOfficer, models.RoleFinanceHead))
		operators.POST("/periods", opts.Payroll.CreatePeriod)
		operators.POST("/periods/:id/run", opts.Payroll.RunPeriod)
		operators.POST("/periods/:id/close", opts.Payroll.ClosePeriod)
	}

	admin := protected.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/sync", opts.Admin.Sync)
		admin.GET("/users", opts.Users.List)
		admin.POST("/users", opts.Users.Create)
		admin.GET("/users/:id", opts.Users.Get)
		admin.PUT("/users/:id", opts.Users.Update)
		admin.DELETE("/users/:id", opts.Users.Deactivate)
	}

	return r
}
