package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/sandbox-cost-collector/internal/application/usecase"
	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

type stubLeaseRepo struct {
	lease entity.Lease
	err   error
}

func (s *stubLeaseRepo) GetLease(ctx context.Context, userEmail, leaseID string) (entity.Lease, error) {
	return s.lease, s.err
}

type stubCostRepo struct{}

func (s *stubCostRepo) AssumeCostAccessRole(ctx context.Context, accountID string) (entity.RoleSession, error) {
	return entity.RoleSession{AccountID: accountID}, nil
}
func (s *stubCostRepo) GetCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.CostReport, error) {
	return entity.CostReport{
		AccountID: session.AccountID,
		StartDate: window.StartDate,
		EndDate:   window.EndDate,
		TotalCost: 10,
	}, nil
}
func (s *stubCostRepo) GetResourceCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.CostReport, error) {
	return entity.CostReport{}, nil
}
func (s *stubCostRepo) GetServiceCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.ServiceCostReport, error) {
	return entity.ServiceCostReport{}, nil
}

type stubExportRepo struct{}

func (s *stubExportRepo) RenderReportCSV(entity.CostReport) string               { return "csv" }
func (s *stubExportRepo) RenderServiceReportCSV(entity.ServiceCostReport) string { return "" }
func (s *stubExportRepo) ExportToCSV(entity.CostReport, string, string) (string, error) {
	return "", nil
}
func (s *stubExportRepo) ExportToJSON(entity.CostReport, string, string) (string, error) {
	return "", nil
}
func (s *stubExportRepo) ExportToPDF(entity.CostReport, string, string) (string, error) {
	return "", nil
}

type stubStorageRepo struct{}

func (s *stubStorageRepo) UploadReportCSV(ctx context.Context, leaseID, body string) (entity.StoredObject, error) {
	return entity.StoredObject{Bucket: "reports", Key: leaseID + ".csv"}, nil
}
func (s *stubStorageRepo) PresignReport(ctx context.Context, key string) (string, time.Time, error) {
	return "https://reports.s3.amazonaws.com/" + key, time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC), nil
}

type stubNotificationRepo struct{}

func (s *stubNotificationRepo) PublishReportReady(ctx context.Context, event entity.ReportReadyEvent) error {
	return nil
}

type stubScheduleRepo struct {
	created int
}

func (s *stubScheduleRepo) CreateCollectionSchedule(ctx context.Context, task entity.ScheduledCollectionTask, at time.Time) error {
	s.created++
	return nil
}
func (s *stubScheduleRepo) DeleteSchedule(ctx context.Context, name string) error { return nil }

type stubMetricsRepo struct{}

func (s *stubMetricsRepo) RecordCollection(ctx context.Context, m entity.CollectionMetrics) {}

func newTestServer(t *testing.T, leaseRepo *stubLeaseRepo) (*Server, *stubScheduleRepo) {
	t.Helper()
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	scheduleRepo := &stubScheduleRepo{}
	collectionUC := usecase.NewCollectionUseCase(
		leaseRepo, &stubCostRepo{}, &stubExportRepo{}, &stubStorageRepo{},
		&stubNotificationRepo{}, scheduleRepo, &stubMetricsRepo{},
		8*time.Hour, logger)
	scheduleUC, err := usecase.NewScheduleUseCase(scheduleRepo, 48*time.Hour, logger)
	require.NoError(t, err)

	return NewServer(collectionUC, scheduleUC, logger), scheduleRepo
}

func defaultLease() *stubLeaseRepo {
	return &stubLeaseRepo{lease: entity.Lease{
		StartDate:      "2026-01-15T10:00:00Z",
		ExpirationDate: "2026-02-02T15:00:00Z",
		AWSAccountID:   "123456789012",
		Status:         "expired",
	}}
}

func taskBody(leaseID string) string {
	return fmt.Sprintf(`{
		"leaseId": %q,
		"userEmail": "dev@example.com",
		"accountId": "123456789012",
		"leaseEndTimestamp": "2026-02-02T15:00:00Z"
	}`, leaseID)
}

func doJSON(server *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, defaultLease())
	rec := doJSON(server, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostTaskHappyPath(t *testing.T) {
	server, _ := newTestServer(t, defaultLease())
	rec := doJSON(server, http.MethodPost, "/tasks", taskBody(uuid.NewString()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalCost":10`)
	assert.Contains(t, rec.Body.String(), "https://reports.s3.amazonaws.com/")
}

func TestPostTaskValidationFailureIs400(t *testing.T) {
	server, _ := newTestServer(t, defaultLease())
	rec := doJSON(server, http.MethodPost, "/tasks", taskBody("not-a-uuid"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "LeaseID")
}

func TestPostTaskLeaseNotFoundIs404(t *testing.T) {
	leaseRepo := defaultLease()
	leaseRepo.err = fmt.Errorf("lookup: %w", types.ErrLeaseNotFound)
	server, _ := newTestServer(t, leaseRepo)

	rec := doJSON(server, http.MethodPost, "/tasks", taskBody(uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostTaskInternalErrorIsOpaque500(t *testing.T) {
	leaseRepo := defaultLease()
	leaseRepo.err = fmt.Errorf("connection reset while calling 10.0.0.7")
	server, _ := newTestServer(t, leaseRepo)

	rec := doJSON(server, http.MethodPost, "/tasks", taskBody(uuid.NewString()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
}

func TestPostLeaseExpiredSchedulesCollection(t *testing.T) {
	server, scheduleRepo := newTestServer(t, defaultLease())
	body := fmt.Sprintf(`{
		"leaseId": %q,
		"userEmail": "dev@example.com",
		"accountId": "123456789012",
		"leaseEndTimestamp": "2026-02-02T15:00:00Z"
	}`, uuid.NewString())

	rec := doJSON(server, http.MethodPost, "/lease-expired", body)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, scheduleRepo.created)
}

func TestPostLeaseExpiredValidationFailureIs400(t *testing.T) {
	server, scheduleRepo := newTestServer(t, defaultLease())
	body := `{"leaseId": "nope", "userEmail": "dev@example.com", "accountId": "123456789012", "leaseEndTimestamp": "2026-02-02T15:00:00Z"}`

	rec := doJSON(server, http.MethodPost, "/lease-expired", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, scheduleRepo.created)
}
