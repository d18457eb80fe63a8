package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhan-alarm/internal/adapter/primary/web"
	"adhan-alarm/internal/bootstrap"
	"adhan-alarm/internal/config"
	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store = config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "store.db")}
	cfg.Sounds.Dir = filepath.Join(dir, "sounds")
	cfg.Audio.Backend = "memory"
	cfg.Power.Backend = "none"
	cfg.Host.Notifications = false

	path := filepath.Join(dir, "config.yaml")
	store, err := config.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(cfg))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func startDaemon(t *testing.T, cfgFile string) string {
	t.Helper()
	cfg, err := config.NewStore(cfgFile)
	require.NoError(t, err)
	loaded, err := cfg.Load()
	require.NoError(t, err)

	services, err := bootstrap.Build(context.Background(), loaded, bootstrap.Overrides{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Close() })

	srv := web.NewServer(web.Backend{
		Scheduler:   services.Scheduler,
		Playback:    services.Playback,
		Preferences: services.Preferences,
		Wakeups:     services.Wakeups,
	}, "")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestScheduleListCancelAgainstDaemon(t *testing.T) {
	cfgFile := writeTestConfig(t)
	addr := startDaemon(t, cfgFile)

	out, err := run(t, "--config", cfgFile, "--addr", addr, "schedule", "fajr_2", "--in", "1h", "--sound", "makkah")
	require.NoError(t, err)
	assert.Contains(t, out, "fajr_2 (ADHAN)")

	out, err = run(t, "--config", cfgFile, "--addr", addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "fajr_2")
	assert.Contains(t, out, "makkah")

	out, err = run(t, "--config", cfgFile, "--addr", addr, "show", "fajr_2")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: ADHAN")
	assert.Contains(t, out, "sound: makkah")

	_, err = run(t, "--config", cfgFile, "--addr", addr, "cancel", "fajr_2")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgFile, "--addr", addr, "show", "fajr_2")
	var apiErr *web.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)

	out, err = run(t, "--config", cfgFile, "--addr", addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "登録なし")

	out, err = run(t, "--config", cfgFile, "--addr", addr, "status")
	require.NoError(t, err)
	assert.Equal(t, "state: IDLE\n", out)
}

func TestScheduleValidatesFlags(t *testing.T) {
	cfgFile := writeTestConfig(t)

	_, err := run(t, "--config", cfgFile, "schedule", "x")
	assert.Error(t, err)

	_, err = run(t, "--config", cfgFile, "schedule", "x", "--in", "1m", "--at", "04:00")
	assert.Error(t, err)

	_, err = run(t, "--config", cfgFile, "schedule", "x", "--in", "1m", "--kind", "NAP")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestPrefsWithoutDaemon(t *testing.T) {
	cfgFile := writeTestConfig(t)

	out, err := run(t, "--config", cfgFile, "prefs", "get")
	require.NoError(t, err)
	assert.Contains(t, out, `"adhanVolumePercent": 100`)

	out, err = run(t, "--config", cfgFile, "prefs", "set", "--volume", "150", "--smart-dnd")
	require.NoError(t, err)
	assert.Contains(t, out, `"adhanVolumePercent": 100`)
	assert.Contains(t, out, `"smartDnd": true`)

	out, err = run(t, "--config", cfgFile, "prefs", "set", "--volume", "35")
	require.NoError(t, err)
	assert.Contains(t, out, `"adhanVolumePercent": 35`)
	assert.Contains(t, out, `"smartDnd": true`, "unset flags keep their stored value")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = run(t, "--config", path, "config", "init")
	assert.Error(t, err, "init refuses to overwrite")

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "driver: sqlite")
	assert.Contains(t, out, config.DefaultAddr)
}

func TestParseFireAt(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-02T04:30:00Z", time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC)},
		{"2026-03-02 04:30", time.Date(2026, 3, 2, 4, 30, 0, 0, loc)},
		{"2026-03-02 04:30:15", time.Date(2026, 3, 2, 4, 30, 15, 0, loc)},
		{"15:20", time.Date(2026, 3, 1, 15, 20, 0, 0, loc)},
		{"04:45", time.Date(2026, 3, 2, 4, 45, 0, 0, loc)},
		{"12:00", time.Date(2026, 3, 2, 12, 0, 0, 0, loc)},
	}
	for _, c := range cases {
		got, err := parseFireAt(c.in, now)
		require.NoError(t, err, c.in)
		assert.True(t, c.want.Equal(got), "%s: got %s want %s", c.in, got, c.want)
	}

	_, err := parseFireAt("tomorrow", now)
	assert.Error(t, err)
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "state: IDLE\n", formatStatus(domain.PlaybackStatus{State: domain.StateIdle}))

	out := formatStatus(domain.PlaybackStatus{
		State: domain.StatePlaying, Trigger: "fajr", Kind: domain.KindAdhan,
		SessionID: "abc", GainPct: 41, Fading: true,
	})
	assert.Contains(t, out, "trigger: fajr (ADHAN)")
	assert.Contains(t, out, "gain: 41% (fading)")
}

func TestWithSessionFlags(t *testing.T) {
	got := withSessionFlags([]string{"list"}, "/c.yaml", "127.0.0.1:1")
	assert.Equal(t, []string{"list", "--config", "/c.yaml", "--addr", "127.0.0.1:1"}, got)

	got = withSessionFlags([]string{"list", "--config=/other.yaml"}, "/c.yaml", "")
	assert.Equal(t, []string{"list", "--config=/other.yaml"}, got)
}

func TestHandleShellLog(t *testing.T) {
	t.Cleanup(func() { logging.SetVerbosity(0) })
	var out bytes.Buffer
	session := 0

	require.NoError(t, handleShellLog([]string{"--level", "debug"}, &session, &out))
	assert.Equal(t, 2, session)
	assert.Contains(t, out.String(), "log level set to debug")

	out.Reset()
	require.NoError(t, handleShellLog([]string{"-v"}, &session, &out))
	assert.Equal(t, 1, session)

	out.Reset()
	require.NoError(t, handleShellLog([]string{"--show"}, &session, &out))
	assert.Contains(t, out.String(), "log level: info")

	assert.Error(t, handleShellLog([]string{"--level", "loud"}, &session, &out))
}
