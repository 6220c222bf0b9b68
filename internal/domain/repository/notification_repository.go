package repository

import (
	"context"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// NotificationRepository defines the interface for the outbound event bus.
type NotificationRepository interface {
	// PublishReportReady emits the completion notification. Emission is not
	// deduplicated; consumers dedup by lease id.
	PublishReportReady(ctx context.Context, event entity.ReportReadyEvent) error
}
