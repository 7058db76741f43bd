package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/repository"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

const syncLockKey = "hr:sync"

type syncRunner interface {
	Run(ctx context.Context, tx *sqlx.Tx, step repository.SyncStep) (int64, error)
}

// SyncConfig controls HR synchronisation.
type SyncConfig struct {
	LockTTL time.Duration
}

// SyncService copies HR staging data into the payroll tables under a cluster-wide lock.
type SyncService struct {
	repo    syncRunner
	tx      txRunner
	lock    DistributedLock
	audit   auditLogger
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SyncConfig
	steps   []repository.SyncStep
}

// NewSyncService constructs the service. lock may be nil when Redis is unavailable, in which case
// runs are not serialised across instances.
func NewSyncService(repo syncRunner, tx txRunner, lock DistributedLock, audit auditLogger, metrics *MetricsService, logger *zap.Logger, cfg SyncConfig) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &SyncService{
		repo:    repo,
		tx:      tx,
		lock:    lock,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		steps:   repository.SyncSteps,
	}
}

// SyncAll runs every staging upsert in one transaction.
func (s *SyncService) SyncAll(ctx context.Context, actorID string) (*dto.SyncSummary, error) {
	if s.lock != nil {
		token := uuid.NewString()
		ok, err := s.lock.AcquireLock(ctx, syncLockKey, token, s.cfg.LockTTL)
		if err != nil {
			s.metrics.RecordSync("error")
			return nil, appErrors.Internal(err, "failed to acquire sync lock")
		}
		if !ok {
			s.metrics.RecordSync("locked")
			return nil, appErrors.Clone(appErrors.ErrLocked, "hr sync already running")
		}
		defer func() {
			if err := s.lock.ReleaseLock(context.Background(), syncLockKey, token); err != nil {
				s.logger.Warn("failed to release sync lock", zap.Error(err))
			}
		}()
	}

	started := time.Now().UTC()
	counts := make(map[string]int64, len(s.steps))
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		for _, step := range s.steps {
			rows, err := s.repo.Run(ctx, tx, step)
			if err != nil {
				return err
			}
			counts[step.Name] = rows
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordSync("error")
		s.logger.Error("hr sync failed", zap.Error(err))
		return nil, appErrors.Internal(err, "hr sync failed")
	}
	finished := time.Now().UTC()

	fields := []zap.Field{zap.Duration("duration", finished.Sub(started))}
	for name, rows := range counts {
		fields = append(fields, zap.Int64(name, rows))
	}
	s.logger.Info("hr sync completed", fields...)
	s.metrics.RecordSync("success")

	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:   optionalString(actorID),
		Action:   models.AuditActionHRSync,
		Resource: "hr_sync",
	})
	return &dto.SyncSummary{
		Steps:      counts,
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: finished.Format(time.RFC3339),
	}, nil
}

// Run adapts SyncAll to the scheduler task signature. A held lock is not an error there.
func (s *SyncService) Run(ctx context.Context) error {
	_, err := s.SyncAll(ctx, "")
	if errors.Is(err, appErrors.ErrLocked) {
		s.logger.Info("scheduled hr sync skipped, another run holds the lock")
		return nil
	}
	return err
}
