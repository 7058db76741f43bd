package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pts-payroll-api/api/swagger"
	"github.com/noah-isme/pts-payroll-api/internal/handler"
	"github.com/noah-isme/pts-payroll-api/internal/repository"
	"github.com/noah-isme/pts-payroll-api/internal/router"
	"github.com/noah-isme/pts-payroll-api/internal/service"
	"github.com/noah-isme/pts-payroll-api/pkg/cache"
	"github.com/noah-isme/pts-payroll-api/pkg/config"
	"github.com/noah-isme/pts-payroll-api/pkg/database"
	"github.com/noah-isme/pts-payroll-api/pkg/jobs"
	"github.com/noah-isme/pts-payroll-api/pkg/logger"
	"github.com/noah-isme/pts-payroll-api/pkg/scheduler"
	"github.com/noah-isme/pts-payroll-api/pkg/storage"
)

// @title PTS Payroll API
// @version 1.0.0
// @description Allowance approval workflow and monthly payroll for PTS entitlements
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("run migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedis(cfg.Redis, logr)
		if err != nil {
			logr.Warn("redis unavailable, running without cache and locks", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	requests := repository.NewRequestRepository(db)
	eligibility := repository.NewEligibilityRepository(db)
	employees := repository.NewEmployeeRepository(db)
	leaves := repository.NewLeaveRepository(db)
	holidays := repository.NewHolidayRepository(db)
	periods := repository.NewPeriodRepository(db)
	payouts := repository.NewPayoutRepository(db)
	notifications := repository.NewNotificationRepository(db)
	syncRepo := repository.NewSyncRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	tx := repository.NewTransactor(db)

	var lock service.DistributedLock
	if redisClient != nil {
		lock = cacheRepo
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, time.Hour, logr, redisClient != nil)
	holidaySvc := service.NewHolidayService(holidays, cacheSvc, users, validate, logr)
	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	requestSvc := service.NewRequestService(requests, eligibility, tx, users, metrics, validate, logr)
	payrollSvc := service.NewPayrollService(eligibility, employees, leaves, holidaySvc, periods, payouts, metrics, logr, service.PayrollConfig{
		FiscalYearOffset:    cfg.Payroll.FiscalYearOffset,
		RetroLookBackMonths: cfg.Payroll.RetroLookBackMonths,
	})
	runSvc := service.NewPayrollRunService(periods, payouts, eligibility, tx, lock, payrollSvc, users, metrics, validate, logr,
		service.PayrollRunConfig{LockTTL: cfg.Payroll.RunLockTTL})
	syncSvc := service.NewSyncService(syncRepo, tx, lock, users, metrics, logr, service.SyncConfig{LockTTL: cfg.Sync.LockTTL})
	reminderSvc := service.NewReminderService(requests, cacheRepo, service.NewInAppNotifier(notifications, logr), notifications,
		holidaySvc, metrics, logr, service.ReminderConfig{
			SLABusinessDays: cfg.Workflow.SLABusinessDays,
			DedupTTL:        cfg.Workflow.ReminderDedupTTL,
		})

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("init export storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(periods, payouts, files, storage.NewSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		users, logr, service.ExportConfig{APIPrefix: cfg.APIPrefix})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("payroll", runSvc.HandleJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Payroll.WorkerRetries,
		RetryDelay: 30 * time.Second,
		Logger:     logr,
	})
	runSvc.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	tasks := scheduler.New(logr)
	if cfg.Workflow.RemindersEnabled {
		tasks.Add(scheduler.Task{Name: "sla-reminders", Interval: cfg.Workflow.ReminderInterval, Fn: reminderSvc.Run})
	}
	if cfg.Sync.Enabled {
		tasks.Add(scheduler.Task{Name: "hr-sync", Interval: cfg.Sync.Interval, Fn: syncSvc.Run})
	}
	tasks.Add(scheduler.Task{Name: "export-cleanup", Interval: time.Hour, RunOnStart: true, Fn: exportSvc.Cleanup})
	tasks.Start(ctx)
	defer tasks.Stop()

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
		Audit:          users,
		Auth:           handler.NewAuthHandler(authSvc),
		Requests:       handler.NewRequestHandler(requestSvc),
		Payroll:        handler.NewPayrollHandler(runSvc, payrollSvc, exportSvc),
		Holidays:       handler.NewHolidayHandler(holidaySvc),
		Admin:          handler.NewAdminHandler(syncSvc, reminderSvc),
		Users:          handler.NewUserHandler(service.NewUserService(users, validate, logr)),
		Exports:        handler.NewExportHandler(exportSvc),
		Health:         handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown", zap.Error(err))
	}
}
