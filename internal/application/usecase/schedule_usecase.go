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

const maxCollectionDelay = 720 * time.Hour

// ScheduleUseCase registra a coleta futura de custos quando um lease expira.
type ScheduleUseCase struct {
	scheduleRepo repository.ScheduleRepository
	delay        time.Duration
	log          log15.Logger
}

// NewScheduleUseCase cria um novo caso de uso de agendamento. A espera entre
// a expiração do lease e a coleta é limitada a 30 dias para que a janela de
// cobrança ainda caiba nos dados de custo por recurso.
func NewScheduleUseCase(scheduleRepo repository.ScheduleRepository, delay time.Duration, logger log15.Logger) (*ScheduleUseCase, error) {
	if delay < 0 || delay > maxCollectionDelay {
		return nil, types.ValidationError{
			Field:  "collectionDelay",
			Value:  delay.String(),
			Reason: fmt.Sprintf("must be between 0 and %s", maxCollectionDelay),
		}
	}
	return &ScheduleUseCase{scheduleRepo: scheduleRepo, delay: delay, log: logger}, nil
}

// ScheduleName derives the deterministic schedule name for a lease. One lease
// maps to exactly one schedule, which is what makes re-delivered events
// converge instead of stacking up duplicates.
func ScheduleName(leaseID string) string {
	return "lease-cost-collection-" + leaseID
}

// ScheduleCollection registers a one-shot collection for an expired lease,
// firing after the configured delay so late-arriving billing data has
// settled.
func (uc *ScheduleUseCase) ScheduleCollection(ctx context.Context, event entity.LeaseExpiredEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	leaseEnd, err := time.Parse(time.RFC3339, event.LeaseEndTimestamp)
	if err != nil {
		return types.ValidationError{
			Field:  "leaseEndTimestamp",
			Value:  event.LeaseEndTimestamp,
			Reason: "must be a valid ISO-8601 timestamp",
		}
	}

	task := entity.ScheduledCollectionTask{
		LeaseID:           event.LeaseID,
		UserEmail:         event.UserEmail,
		AccountID:         event.AccountID,
		LeaseEndTimestamp: event.LeaseEndTimestamp,
		ScheduleName:      ScheduleName(event.LeaseID),
	}
	if err := task.Validate(); err != nil {
		return err
	}

	at := leaseEnd.UTC().Add(uc.delay).Truncate(time.Second)
	if err := uc.scheduleRepo.CreateCollectionSchedule(ctx, task, at); err != nil {
		return err
	}

	uc.log.Info("collection scheduled",
		"leaseId", event.LeaseID, "at", at.Format(time.RFC3339))
	return nil
}
