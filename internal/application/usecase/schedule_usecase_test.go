package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

func newScheduleFixture(t *testing.T, delay time.Duration) (*ScheduleUseCase, *mockScheduleRepo) {
	t.Helper()
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	repo := &mockScheduleRepo{}
	uc, err := NewScheduleUseCase(repo, delay, logger)
	require.NoError(t, err)
	return uc, repo
}

func validLeaseExpiredEvent() entity.LeaseExpiredEvent {
	return entity.LeaseExpiredEvent{
		LeaseID:           uuid.NewString(),
		UserEmail:         "dev@example.com",
		AccountID:         "123456789012",
		LeaseEndTimestamp: "2026-02-02T15:00:00Z",
	}
}

func TestNewScheduleUseCaseRejectsOutOfRangeDelay(t *testing.T) {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	_, err := NewScheduleUseCase(&mockScheduleRepo{}, -time.Hour, logger)
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))

	_, err = NewScheduleUseCase(&mockScheduleRepo{}, 721*time.Hour, logger)
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))

	_, err = NewScheduleUseCase(&mockScheduleRepo{}, 720*time.Hour, logger)
	assert.NoError(t, err)
}

func TestScheduleCollectionCreatesOneShotSchedule(t *testing.T) {
	uc, repo := newScheduleFixture(t, 48*time.Hour)
	event := validLeaseExpiredEvent()

	require.NoError(t, uc.ScheduleCollection(context.Background(), event))

	require.Len(t, repo.created, 1)
	task := repo.created[0]
	assert.Equal(t, event.LeaseID, task.LeaseID)
	assert.Equal(t, "lease-cost-collection-"+event.LeaseID, task.ScheduleName)
	assert.Equal(t, event.LeaseEndTimestamp, task.LeaseEndTimestamp)
}

func TestScheduleCollectionRejectsInvalidEvent(t *testing.T) {
	uc, repo := newScheduleFixture(t, 48*time.Hour)
	event := validLeaseExpiredEvent()
	event.AccountID = "short"

	err := uc.ScheduleCollection(context.Background(), event)
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
	assert.Empty(t, repo.created)
}

func TestScheduleCollectionRejectsUnparseableTimestamp(t *testing.T) {
	uc, repo := newScheduleFixture(t, 48*time.Hour)
	event := validLeaseExpiredEvent()
	event.LeaseEndTimestamp = "02/02/2026 15:00"

	err := uc.ScheduleCollection(context.Background(), event)
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
	assert.Empty(t, repo.created)
}

func TestScheduleCollectionPropagatesRepositoryErrors(t *testing.T) {
	uc, repo := newScheduleFixture(t, 48*time.Hour)
	repo.createErr = errors.New("scheduler unavailable")

	err := uc.ScheduleCollection(context.Background(), validLeaseExpiredEvent())
	require.Error(t, err)
}

func TestScheduleNameIsDeterministic(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, ScheduleName(id), ScheduleName(id))
	assert.Equal(t, "lease-cost-collection-"+id, ScheduleName(id))
}
