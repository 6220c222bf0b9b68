package repository

import (
	"context"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// MetricsRepository defines the interface for business metrics emission.
// Implementations never fail the caller: emission errors are logged and
// swallowed internally.
type MetricsRepository interface {
	RecordCollection(ctx context.Context, m entity.CollectionMetrics)
}
