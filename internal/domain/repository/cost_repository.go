package repository

import (
	"context"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// CostRepository defines the interface for cost-data interactions against
// the billed cloud account.
type CostRepository interface {
	// AssumeCostAccessRole assumes the cost-read role in the given sandbox
	// account. The returned session is required by the query methods.
	AssumeCostAccessRole(ctx context.Context, accountID string) (entity.RoleSession, error)

	// GetCostReport aggregates costs over the window at the finest
	// granularity available, splitting into resource-level and service-level
	// sub-windows as the 14-day resource-data constraint requires. When the
	// context carries a deadline, pagination stops early rather than letting
	// it expire mid-call.
	GetCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.CostReport, error)

	// GetResourceCostReport aggregates resource-level costs only. It fails
	// fast, before any network call, if the window exceeds 14 days.
	GetResourceCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.CostReport, error)

	// GetServiceCostReport aggregates service totals only (the simpler
	// two-column report variant).
	GetServiceCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.ServiceCostReport, error)
}
