package repository

import (
	"context"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// LeaseRepository defines the interface for lease lookups against the
// leases service.
type LeaseRepository interface {
	// GetLease fetches one lease by its composite user-email/UUID key.
	// Returns types.ErrLeaseNotFound (wrapped) when the lease does not exist.
	GetLease(ctx context.Context, userEmail, leaseID string) (entity.Lease, error)
}
