// Package usecase contains the application services that orchestrate the
// domain repositories.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

// CollectionResult summarizes one completed collection run.
type CollectionResult struct {
	Report       entity.CostReport
	Stored       entity.StoredObject
	CSVURL       string
	URLExpiresAt time.Time
}

// CollectionUseCase orquestra uma coleta de custos fim a fim: lease, role,
// agregação, upload, notificação e limpeza.
type CollectionUseCase struct {
	leaseRepo        repository.LeaseRepository
	costRepo         repository.CostRepository
	exportRepo       repository.ExportRepository
	storageRepo      repository.StorageRepository
	notificationRepo repository.NotificationRepository
	scheduleRepo     repository.ScheduleRepository
	metricsRepo      repository.MetricsRepository
	billingPadding   time.Duration
	log              log15.Logger
}

// NewCollectionUseCase cria um novo caso de uso de coleta.
func NewCollectionUseCase(
	leaseRepo repository.LeaseRepository,
	costRepo repository.CostRepository,
	exportRepo repository.ExportRepository,
	storageRepo repository.StorageRepository,
	notificationRepo repository.NotificationRepository,
	scheduleRepo repository.ScheduleRepository,
	metricsRepo repository.MetricsRepository,
	billingPadding time.Duration,
	logger log15.Logger,
) *CollectionUseCase {
	return &CollectionUseCase{
		leaseRepo:        leaseRepo,
		costRepo:         costRepo,
		exportRepo:       exportRepo,
		storageRepo:      storageRepo,
		notificationRepo: notificationRepo,
		scheduleRepo:     scheduleRepo,
		metricsRepo:      metricsRepo,
		billingPadding:   billingPadding,
		log:              logger,
	}
}

// ProcessTask runs a collection for one scheduled task. Any failure before
// the notification leaves no visible side effect besides a possibly uploaded
// object, and the task can simply run again: every step is idempotent per
// lease. Schedule cleanup and metrics after the notification are best effort.
func (uc *CollectionUseCase) ProcessTask(ctx context.Context, task entity.ScheduledCollectionTask) (CollectionResult, error) {
	started := time.Now()

	if err := task.Validate(); err != nil {
		return CollectionResult{}, err
	}

	lease, err := uc.leaseRepo.GetLease(ctx, task.UserEmail, task.LeaseID)
	if err != nil {
		return CollectionResult{}, err
	}
	if lease.AWSAccountID != task.AccountID {
		return CollectionResult{}, types.ValidationErrors{{
			Field:  "accountId",
			Value:  task.AccountID,
			Reason: fmt.Sprintf("does not match the lease's account %s", lease.AWSAccountID),
		}}
	}

	session, err := uc.costRepo.AssumeCostAccessRole(ctx, lease.AWSAccountID)
	if err != nil {
		return CollectionResult{}, err
	}

	window, err := entity.NewBillingWindow(lease.StartDate, lease.ExpirationDate, uc.billingPadding)
	if err != nil {
		return CollectionResult{}, err
	}
	uc.log.Info("collecting costs",
		"leaseId", task.LeaseID, "accountId", lease.AWSAccountID,
		"start", window.StartDate, "end", window.EndDate)

	report, err := uc.costRepo.GetCostReport(ctx, session, window)
	if err != nil {
		return CollectionResult{}, err
	}

	body := uc.exportRepo.RenderReportCSV(report)
	stored, err := uc.storageRepo.UploadReportCSV(ctx, task.LeaseID, body)
	if err != nil {
		return CollectionResult{}, err
	}

	url, expiresAt, err := uc.storageRepo.PresignReport(ctx, stored.Key)
	if err != nil {
		return CollectionResult{}, err
	}

	event := entity.ReportReadyEvent{
		LeaseID:      task.LeaseID,
		UserEmail:    task.UserEmail,
		AccountID:    lease.AWSAccountID,
		TotalCost:    report.TotalCost,
		Currency:     entity.CurrencyUSD,
		StartDate:    report.StartDate,
		EndDate:      report.EndDate,
		CSVURL:       url,
		URLExpiresAt: expiresAt.Format(time.RFC3339),
	}
	if err := uc.notificationRepo.PublishReportReady(ctx, event); err != nil {
		return CollectionResult{}, err
	}

	uc.cleanupSchedule(ctx, task.ScheduleName)

	uc.metricsRepo.RecordCollection(ctx, entity.CollectionMetrics{
		AccountID:     lease.AWSAccountID,
		TotalCost:     report.TotalCost,
		ResourceCount: len(report.CostsByResource),
		Duration:      time.Since(started),
	})

	return CollectionResult{
		Report:       report,
		Stored:       stored,
		CSVURL:       url,
		URLExpiresAt: expiresAt,
	}, nil
}

// cleanupSchedule removes the fired one-shot schedule. The report is already
// published at this point, so a failure here only leaves a stale schedule
// behind and must not fail the run.
func (uc *CollectionUseCase) cleanupSchedule(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := uc.scheduleRepo.DeleteSchedule(ctx, name); err != nil {
		uc.log.Warn("failed to delete fired schedule", "name", name, "error", err)
	}
}
