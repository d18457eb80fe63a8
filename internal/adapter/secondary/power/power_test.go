package power

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInhibitorCommands(t *testing.T) {
	assert.Equal(t, []string{"caffeinate", "-i", "-t", "600"}, Caffeinate("x", 10*time.Minute))

	argv := SystemdInhibit("adhan-alarm:playback", 90*time.Second)
	assert.Equal(t, "systemd-inhibit", argv[0])
	assert.Contains(t, argv, "--why=adhan-alarm:playback")
	assert.Equal(t, []string{"sleep", "90"}, argv[len(argv)-2:])

	assert.Equal(t, "1", seconds(10*time.Millisecond))
	assert.Nil(t, InhibitorFor("plan9"))
}

func TestCommandPowerAcquireRelease(t *testing.T) {
	p := NewCommandPowerWith(func(_ string, ceiling time.Duration) []string {
		return []string{"sleep", seconds(ceiling)}
	})

	lock, err := p.Acquire(context.Background(), "test", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}

func TestCommandPowerCeilingElapsed(t *testing.T) {
	p := NewCommandPowerWith(func(string, time.Duration) []string {
		return []string{"true"}
	})

	lock, err := p.Acquire(context.Background(), "short", time.Second)
	require.NoError(t, err)
	cl := lock.(*commandLock)
	select {
	case <-cl.done:
	case <-time.After(5 * time.Second):
		t.Fatal("inhibitor did not exit")
	}
	assert.NoError(t, lock.Release())
}

func TestCommandPowerErrors(t *testing.T) {
	_, err := NewCommandPowerWith(nil).Acquire(context.Background(), "x", time.Minute)
	assert.Error(t, err)

	_, err = NewCommandPowerWith(Caffeinate).Acquire(context.Background(), "x", 0)
	assert.Error(t, err)

	missing := NewCommandPowerWith(func(string, time.Duration) []string {
		return []string{"/definitely/not/a/binary"}
	})
	_, err = missing.Acquire(context.Background(), "x", time.Minute)
	assert.Error(t, err)
}
