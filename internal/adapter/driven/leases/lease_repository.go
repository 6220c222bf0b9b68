// Package leases implements the driven adapter for the leases service
// HTTP API.
package leases

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
	"github.com/diillson/sandbox-cost-collector/internal/shared/retry"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

const requestTimeout = 10 * time.Second

// LeaseRepositoryImpl implementa o LeaseRepository sobre a API HTTP do
// serviço de leases.
type LeaseRepositoryImpl struct {
	baseURL string
	client  *http.Client
	policy  retry.Policy
	log     log15.Logger
}

// NewLeaseRepository cria uma nova implementação do LeaseRepository.
func NewLeaseRepository(baseURL string, logger log15.Logger) repository.LeaseRepository {
	return &LeaseRepositoryImpl{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
		policy:  retry.DefaultPolicy,
		log:     logger,
	}
}

func (r *LeaseRepositoryImpl) GetLease(ctx context.Context, userEmail, leaseID string) (entity.Lease, error) {
	url := fmt.Sprintf("%s/leases/%s", r.baseURL, leaseKey(userEmail, leaseID))

	var lease entity.Lease
	err := retry.Do(ctx, r.policy, retryableStatus, func(ctx context.Context) error {
		got, err := r.fetch(ctx, url)
		if err != nil {
			return err
		}
		lease = got
		return nil
	})
	if err != nil {
		var httpErr *httpStatusError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return entity.Lease{}, fmt.Errorf("lease %s for %s: %w", leaseID, userEmail, types.ErrLeaseNotFound)
		}
		return entity.Lease{}, fmt.Errorf("failed to fetch lease %s: %w", leaseID, err)
	}
	return lease, nil
}

func (r *LeaseRepositoryImpl) fetch(ctx context.Context, url string) (entity.Lease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entity.Lease{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return entity.Lease{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drena o corpo para permitir reuso da conexão.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return entity.Lease{}, &httpStatusError{status: resp.StatusCode}
	}

	var lease entity.Lease
	if err := json.NewDecoder(resp.Body).Decode(&lease); err != nil {
		return entity.Lease{}, fmt.Errorf("failed to decode lease response: %w", err)
	}
	return lease, nil
}

// leaseKey builds the composite lookup key the leases service addresses
// leases by. Raw URL-safe base64 keeps the key path-safe without padding.
func leaseKey(userEmail, leaseID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userEmail + "#" + leaseID))
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("leases service returned status %d", e.status)
}

// retryableStatus retries transport failures, throttling and server errors.
// Client errors like 404 are definitive and returned immediately.
func retryableStatus(err error) bool {
	var httpErr *httpStatusError
	if !errors.As(err, &httpErr) {
		return true
	}
	return httpErr.status == http.StatusTooManyRequests || httpErr.status >= 500
}
