package repository

import (
	"context"
	"time"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// ScheduleRepository defines the interface for the one-shot collection
// schedules that trigger the orchestrator later.
type ScheduleRepository interface {
	// CreateCollectionSchedule registers a one-shot schedule firing at the
	// given instant with the task as payload. An already-existing schedule
	// with the same name is treated as success (idempotent under retry).
	CreateCollectionSchedule(ctx context.Context, task entity.ScheduledCollectionTask, at time.Time) error

	// DeleteSchedule removes a schedule by name. A schedule that is already
	// gone is treated as success.
	DeleteSchedule(ctx context.Context, name string) error
}
