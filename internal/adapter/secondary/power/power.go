package power

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

// Inhibitor builds the command that holds the machine awake for ceiling.
// The command must exit on its own once ceiling elapses.
type Inhibitor func(tag string, ceiling time.Duration) []string

// Caffeinate holds an idle-sleep assertion on macOS.
func Caffeinate(_ string, ceiling time.Duration) []string {
	return []string{"caffeinate", "-i", "-t", seconds(ceiling)}
}

// SystemdInhibit holds a sleep/idle inhibitor lock on systemd hosts.
func SystemdInhibit(tag string, ceiling time.Duration) []string {
	return []string{
		"systemd-inhibit",
		"--what=sleep:idle",
		"--who=adhan-alarm",
		"--why=" + tag,
		"--mode=block",
		"sleep", seconds(ceiling),
	}
}

// InhibitorFor picks the inhibitor for goos, or nil when none is known.
func InhibitorFor(goos string) Inhibitor {
	switch goos {
	case "darwin":
		return Caffeinate
	case "linux":
		return SystemdInhibit
	default:
		return nil
	}
}

func seconds(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// CommandPower implements domain.PowerManager by running an inhibitor
// subprocess for the lifetime of each wake-lock.
// This is a secondary adapter.
type CommandPower struct {
	inhibit Inhibitor
}

var _ domain.PowerManager = (*CommandPower)(nil)

// NewCommandPower returns a power manager for the running OS.
func NewCommandPower() *CommandPower {
	return &CommandPower{inhibit: InhibitorFor(runtime.GOOS)}
}

// NewCommandPowerWith uses a specific inhibitor.
func NewCommandPowerWith(inhibit Inhibitor) *CommandPower {
	return &CommandPower{inhibit: inhibit}
}

func (p *CommandPower) Acquire(_ context.Context, tag string, ceiling time.Duration) (domain.WakeLock, error) {
	if p.inhibit == nil {
		return nil, fmt.Errorf("no wake-lock inhibitor for %s", runtime.GOOS)
	}
	if ceiling <= 0 {
		return nil, errors.New("wake-lock ceiling must be positive")
	}

	argv := p.inhibit(tag, ceiling)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	lock := &commandLock{tag: tag, cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(lock.done)
	}()
	logging.Debugf("wake-lock %s acquired via %s (ceiling %s)", tag, argv[0], ceiling)
	return lock, nil
}

type commandLock struct {
	tag  string
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

// Release ends the inhibitor. Releasing a lock whose ceiling already elapsed is fine.
func (l *commandLock) Release() error {
	var err error
	l.once.Do(func() {
		select {
		case <-l.done:
			return
		default:
		}
		if sigErr := l.cmd.Process.Signal(os.Interrupt); sigErr != nil && !errors.Is(sigErr, os.ErrProcessDone) {
			err = fmt.Errorf("release %s: %w", l.tag, sigErr)
		}
		select {
		case <-l.done:
		case <-time.After(time.Second):
			_ = l.cmd.Process.Kill()
			<-l.done
		}
		logging.Debugf("wake-lock %s released", l.tag)
	})
	return err
}

// Noop implements domain.PowerManager without holding anything.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (domain.WakeLock, error) {
	return noopLock{}, nil
}

type noopLock struct{}

func (noopLock) Release() error { return nil }
