package wakeup

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhan-alarm/internal/domain"
)

var start = time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntil(n int)
}

func newTestRegistry(t *testing.T, opts Options) (*Registry, fakeClock, chan domain.Wakeup) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(start)
	fired := make(chan domain.Wakeup, 16)
	r := New(context.Background(), clock, opts, func(w domain.Wakeup) { fired <- w })
	t.Cleanup(func() { r.Close() })
	return r, clock, fired
}

func expectFired(t *testing.T, fired chan domain.Wakeup, name string) {
	t.Helper()
	select {
	case w := <-fired:
		assert.Equal(t, name, w.Name)
	case <-time.After(2 * time.Second):
		t.Fatalf("wake-up %s did not fire", name)
	}
}

func expectQuiet(t *testing.T, fired chan domain.Wakeup) {
	t.Helper()
	select {
	case w := <-fired:
		t.Fatalf("unexpected firing of %s", w.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegisterFiresAtFireTime(t *testing.T) {
	r, clock, fired := newTestRegistry(t, Options{ExactPermitted: true})
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "fajr", FireAt: start.Add(30 * time.Second), Kind: domain.KindAdhan}))

	clock.Advance(29 * time.Second)
	expectQuiet(t, fired)

	clock.Advance(time.Second)
	expectFired(t, fired, "fajr")

	got, err := r.Registered(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "one-shot wake-ups are disarmed after firing")
}

func TestSleepCapStillFiresLongWakeups(t *testing.T) {
	r, clock, fired := newTestRegistry(t, Options{ExactPermitted: true})

	require.NoError(t, r.Register(context.Background(), domain.Wakeup{Name: "isha", FireAt: start.Add(3 * time.Minute)}))

	for i := 0; i < 2; i++ {
		clock.BlockUntil(1)
		clock.Advance(defaultMaxSleep)
		expectQuiet(t, fired)
	}
	clock.BlockUntil(1)
	clock.Advance(defaultMaxSleep)
	expectFired(t, fired, "isha")
}

func TestRegisterReplacesByName(t *testing.T) {
	r, clock, fired := newTestRegistry(t, Options{ExactPermitted: true})
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "asr", FireAt: start.Add(10 * time.Second), Sound: "makkah"}))
	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "asr", FireAt: start.Add(20 * time.Second), Sound: "egypt"}))

	got, err := r.Registered(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "egypt", got[0].Sound)

	clock.Advance(10 * time.Second)
	expectQuiet(t, fired)
	clock.Advance(10 * time.Second)
	expectFired(t, fired, "asr")
	expectQuiet(t, fired)
}

func TestCancelDisarms(t *testing.T) {
	r, clock, fired := newTestRegistry(t, Options{ExactPermitted: true})
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "dhuhr", FireAt: start.Add(5 * time.Second)}))
	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "wake", FireAt: start.Add(6 * time.Second)}))
	require.NoError(t, r.Cancel(ctx, "dhuhr"))
	require.NoError(t, r.Cancel(ctx, "unknown"))

	clock.Advance(10 * time.Second)
	expectFired(t, fired, "wake")
	expectQuiet(t, fired)
}

func TestRegisteredIsOrdered(t *testing.T) {
	r, _, _ := newTestRegistry(t, Options{ExactPermitted: true})
	ctx := context.Background()

	for i, name := range []string{"isha", "fajr", "maghrib"} {
		offsets := []time.Duration{5 * time.Hour, time.Hour, 3 * time.Hour}
		require.NoError(t, r.Register(ctx, domain.Wakeup{Name: name, FireAt: start.Add(offsets[i])}))
	}

	got, err := r.Registered(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "fajr", got[0].Name)
	assert.Equal(t, "maghrib", got[1].Name)
	assert.Equal(t, "isha", got[2].Name)
}

func TestPermissionDenied(t *testing.T) {
	r, _, _ := newTestRegistry(t, Options{ExactPermitted: false})

	err := r.Register(context.Background(), domain.Wakeup{Name: "fajr", FireAt: start.Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestClosedRegistry(t *testing.T) {
	r, _, _ := newTestRegistry(t, Options{ExactPermitted: true})
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	err := r.Register(context.Background(), domain.Wakeup{Name: "fajr", FireAt: start.Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrRegistryClosed)
	assert.ErrorIs(t, r.Cancel(context.Background(), "fajr"), domain.ErrRegistryClosed)
}

func TestHandlerPanicDoesNotStopRegistry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	fired := make(chan domain.Wakeup, 4)
	r := New(context.Background(), clock, Options{ExactPermitted: true}, func(w domain.Wakeup) {
		if w.Name == "bad" {
			panic("boom")
		}
		fired <- w
	})
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "bad", FireAt: start.Add(time.Second)}))
	require.NoError(t, r.Register(ctx, domain.Wakeup{Name: "good", FireAt: start.Add(2 * time.Second)}))

	clock.Advance(2 * time.Second)
	expectFired(t, fired, "good")
}
