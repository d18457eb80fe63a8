package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhan-alarm/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (SchedulerUseCase, *memTriggerStore, *fakeRegistrar, fakeClock) {
	t.Helper()
	store := newMemTriggerStore()
	reg := newFakeRegistrar()
	clock := clockwork.NewFakeClockAt(baseTime)
	uc, err := NewSchedulerUseCase(store, reg, clock)
	require.NoError(t, err)
	return uc, store, reg, clock
}

func TestNewSchedulerUseCaseRequiresPorts(t *testing.T) {
	_, err := NewSchedulerUseCase(nil, newFakeRegistrar(), nil)
	assert.Error(t, err)
}

func TestScheduleThenListPending(t *testing.T) {
	uc, _, reg, _ := newTestScheduler(t)
	ctx := context.Background()

	fajr := domain.Trigger{Name: "fajr", FireAt: baseTime.Add(30 * time.Minute), Sound: "makkah", Kind: domain.KindAdhan}
	require.NoError(t, uc.Schedule(ctx, fajr))

	pending, err := uc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fajr", pending[0].Name)
	assert.Equal(t, domain.KindAdhan, pending[0].Kind)
	assert.Equal(t, []string{"fajr"}, reg.names())
}

func TestRescheduleReplacesByName(t *testing.T) {
	uc, store, reg, _ := newTestScheduler(t)
	ctx := context.Background()

	first := domain.Trigger{Name: "fajr", FireAt: baseTime.Add(time.Hour), Sound: "makkah", Kind: domain.KindAdhan}
	second := first
	second.FireAt = baseTime.Add(2 * time.Hour)
	second.Sound = "egypt"

	require.NoError(t, uc.Schedule(ctx, first))
	require.NoError(t, uc.Schedule(ctx, second))

	pending, err := uc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "egypt", pending[0].Sound)
	assert.True(t, pending[0].FireAt.Equal(second.FireAt))

	assert.Len(t, reg.names(), 1)
	assert.True(t, second.FireAt.Equal(reg.registered["fajr"].FireAt))
	assert.Len(t, store.triggers, 1)
}

func TestCancelExcludesTrigger(t *testing.T) {
	uc, _, reg, _ := newTestScheduler(t)
	ctx := context.Background()

	require.NoError(t, uc.Schedule(ctx, domain.Trigger{Name: "isha", FireAt: baseTime.Add(time.Hour), Kind: domain.KindAdhan}))
	require.NoError(t, uc.Cancel(ctx, "isha"))

	pending, err := uc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, reg.names())

	assert.NoError(t, uc.Cancel(ctx, "never-scheduled"))
}

func TestGetReturnsStoredTrigger(t *testing.T) {
	uc, store, _, _ := newTestScheduler(t)
	ctx := context.Background()

	store.triggers["fajr"] = domain.Trigger{Name: "fajr", FireAt: baseTime.Add(-time.Hour), Sound: "makkah", Kind: domain.KindAdhan}

	got, err := uc.Get(ctx, "fajr")
	require.NoError(t, err, "fired triggers stay readable")
	assert.Equal(t, "makkah", got.Sound)

	_, err = uc.Get(ctx, "isha")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPendingIsStrictlyFuture(t *testing.T) {
	uc, store, _, clock := newTestScheduler(t)
	ctx := context.Background()

	store.triggers["past"] = domain.Trigger{Name: "past", FireAt: baseTime.Add(-time.Minute), Kind: domain.KindAdhan}
	store.triggers["now"] = domain.Trigger{Name: "now", FireAt: baseTime, Kind: domain.KindAdhan}
	store.triggers["later"] = domain.Trigger{Name: "later", FireAt: baseTime.Add(time.Minute), Kind: domain.KindAlarm}

	pending, err := uc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "later", pending[0].Name)

	clock.Advance(2 * time.Minute)
	pending, err = uc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestScheduleRejectsInvalid(t *testing.T) {
	uc, store, _, _ := newTestScheduler(t)

	err := uc.Schedule(context.Background(), domain.Trigger{FireAt: baseTime.Add(time.Hour), Kind: domain.KindAdhan})
	assert.ErrorIs(t, err, domain.ErrInvalidTrigger)

	err = uc.Schedule(context.Background(), domain.Trigger{Name: "x", FireAt: baseTime.Add(time.Hour), Kind: "SIREN"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
	assert.Empty(t, store.triggers)
}

func TestScheduleSurfacesFailures(t *testing.T) {
	t.Run("persistence", func(t *testing.T) {
		uc, store, reg, _ := newTestScheduler(t)
		store.putErr = errBoom

		err := uc.Schedule(context.Background(), domain.Trigger{Name: "asr", FireAt: baseTime.Add(time.Hour), Kind: domain.KindAdhan})
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.ErrorIs(t, err, errBoom)
		assert.Zero(t, reg.calls)
	})

	t.Run("permission", func(t *testing.T) {
		uc, _, reg, _ := newTestScheduler(t)
		reg.failFor["asr"] = fmt.Errorf("exact wake-ups off: %w", domain.ErrPermissionDenied)

		err := uc.Schedule(context.Background(), domain.Trigger{Name: "asr", FireAt: baseTime.Add(time.Hour), Kind: domain.KindAdhan})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

func TestRecoverAfterRestart(t *testing.T) {
	uc, store, reg, _ := newTestScheduler(t)
	ctx := context.Background()

	store.triggers["fajr"] = domain.Trigger{Name: "fajr", FireAt: baseTime.Add(-time.Hour), Kind: domain.KindAdhan}
	store.triggers["dhuhr"] = domain.Trigger{Name: "dhuhr", FireAt: baseTime.Add(8 * time.Hour), Kind: domain.KindAdhan}
	store.triggers["asr"] = domain.Trigger{Name: "asr", FireAt: baseTime.Add(11 * time.Hour), Kind: domain.KindAdhan}
	store.triggers["wake"] = domain.Trigger{Name: "wake", FireAt: baseTime.Add(2 * time.Hour), Kind: domain.KindAlarm}
	reg.failFor["asr"] = errBoom

	report, err := uc.RecoverAfterRestart(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	assert.ElementsMatch(t, []string{"dhuhr", "wake"}, report.Registered)
	assert.Equal(t, []string{"fajr"}, report.PastDue)
	assert.Equal(t, []string{"asr"}, report.Failed)
	assert.ElementsMatch(t, []string{"dhuhr", "wake"}, reg.names())

	_, ok := store.triggers["fajr"]
	assert.True(t, ok, "past-due triggers stay in the store")
}

func TestRecoverAfterRestartEmptyStore(t *testing.T) {
	uc, _, reg, _ := newTestScheduler(t)

	report, err := uc.RecoverAfterRestart(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Registered)
	assert.Zero(t, reg.calls)
}
