package leases

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/sandbox-cost-collector/internal/shared/retry"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

func newTestRepo(baseURL string) *LeaseRepositoryImpl {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return &LeaseRepositoryImpl{
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Second},
		policy:  retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		log:     logger,
	}
}

func TestGetLeaseDecodesResponse(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"startDate": "2026-01-15T10:00:00Z",
			"expirationDate": "2026-02-02T15:00:00Z",
			"awsAccountId": "123456789012",
			"status": "expired",
			"someFutureField": true
		}`))
	}))
	defer server.Close()

	repo := newTestRepo(server.URL)
	lease, err := repo.GetLease(context.Background(), "dev@example.com", "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
	require.NoError(t, err)

	assert.Equal(t, "123456789012", lease.AWSAccountID)
	assert.Equal(t, "2026-01-15T10:00:00Z", lease.StartDate)
	assert.Equal(t, "2026-02-02T15:00:00Z", lease.ExpirationDate)
	assert.Equal(t, "expired", lease.Status)

	wantKey := base64.RawURLEncoding.EncodeToString([]byte("dev@example.com#0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"))
	assert.Equal(t, "/leases/"+wantKey, gotPath)
}

func TestGetLeaseNotFound(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	repo := newTestRepo(server.URL)
	_, err := repo.GetLease(context.Background(), "dev@example.com", "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")

	require.ErrorIs(t, err, types.ErrLeaseNotFound)
	assert.Equal(t, 1, calls, "404 is definitive and must not be retried")
}

func TestGetLeaseRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"awsAccountId": "123456789012"}`))
	}))
	defer server.Close()

	repo := newTestRepo(server.URL)
	lease, err := repo.GetLease(context.Background(), "dev@example.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", lease.AWSAccountID)
	assert.Equal(t, 3, calls)
}

func TestGetLeaseGivesUpAfterRetriesExhausted(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	repo := newTestRepo(server.URL)
	_, err := repo.GetLease(context.Background(), "dev@example.com", "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrLeaseNotFound)
	assert.Equal(t, 3, calls)
}
