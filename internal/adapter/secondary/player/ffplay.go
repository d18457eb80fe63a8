package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"adhan-alarm/internal/domain"
)

// FFPlayDecoders opens sounds as ffplay subprocesses.
// This is a secondary adapter.
type FFPlayDecoders struct {
	command      string
	startupGrace time.Duration
	stopGrace    time.Duration
}

var _ domain.DecoderFactory = (*FFPlayDecoders)(nil)

// NewFFPlayDecoders returns a factory running command (default "ffplay").
func NewFFPlayDecoders(command string) *FFPlayDecoders {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayDecoders{
		command:      command,
		startupGrace: 250 * time.Millisecond,
		stopGrace:    1200 * time.Millisecond,
	}
}

// Open prepares a decoder. The process is not started until Start.
func (f *FFPlayDecoders) Open(_ context.Context, src domain.SoundSource, opts domain.DecoderOptions) (domain.Decoder, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("%w: empty source path", domain.ErrSoundUnavailable)
	}
	if _, err := os.Stat(src.Path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSoundUnavailable, err)
	}

	cmd := exec.Command(f.command, ffplayArgs(src.Path, opts)...)
	cmd.Env = os.Environ()
	if opts.AlarmUsage {
		cmd.Env = append(cmd.Env, "PULSE_PROP=media.role=alarm")
	}

	return &ffplayDecoder{
		cmd:          cmd,
		gain:         opts.GainPct,
		startupGrace: f.startupGrace,
		stopGrace:    f.stopGrace,
		done:         make(chan struct{}),
	}, nil
}

// ffplayArgs builds the command line. ffplay cannot change volume while
// playing, so a fade is expressed as an afade filter at full volume.
func ffplayArgs(path string, opts domain.DecoderOptions) []string {
	args := []string{
		"-nodisp",
		"-hide_banner",
		"-loglevel", "warning",
	}
	if opts.Looping {
		args = append(args, "-loop", "0")
	} else {
		args = append(args, "-autoexit")
	}

	gain := opts.GainPct
	if opts.FadeDuration > 0 {
		gain = 100
		secs := strconv.FormatFloat(opts.FadeDuration.Seconds(), 'f', -1, 64)
		args = append(args, "-af", "afade=t=in:st=0:d="+secs)
	}
	args = append(args, "-volume", strconv.Itoa(clampGain(gain)))

	return append(args, path)
}

type ffplayDecoder struct {
	cmd          *exec.Cmd
	stderr       bytes.Buffer
	startupGrace time.Duration
	stopGrace    time.Duration

	mu       sync.Mutex
	gain     int
	started  bool
	err      error

	done     chan struct{}
	stopOnce sync.Once
	stopped  bool
}

func (d *ffplayDecoder) Start() error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("decoder already started")
	}
	d.started = true
	d.cmd.Stderr = &d.stderr
	d.cmd.WaitDelay = d.stopGrace
	if err := d.cmd.Start(); err != nil {
		d.mu.Unlock()
		close(d.done)
		return fmt.Errorf("failed to start %s: %w", d.cmd.Path, err)
	}
	d.mu.Unlock()

	go func() {
		err := d.cmd.Wait()
		d.mu.Lock()
		if !d.stopped {
			d.err = normalizeExitErr(err)
		}
		d.mu.Unlock()
		close(d.done)
	}()

	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.err != nil {
			return fmt.Errorf("%s exited before playback started: %w: %s", d.cmd.Path, d.err, trimStderr(&d.stderr))
		}
		return nil
	case <-time.After(d.startupGrace):
		return nil
	}
}

// SetGain records the requested gain. A running ffplay keeps the gain it was
// started with; faded sessions are shaped by the afade filter instead.
func (d *ffplayDecoder) SetGain(pct int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gain = clampGain(pct)
	return nil
}

// Stop interrupts the process and kills it if it has not exited within the grace period.
func (d *ffplayDecoder) Stop() error {
	d.mu.Lock()
	started := d.started
	d.stopped = true
	d.mu.Unlock()
	if !started {
		return nil
	}

	d.stopOnce.Do(func() {
		if d.cmd.Process == nil {
			return
		}
		_ = d.cmd.Process.Signal(os.Interrupt)
		select {
		case <-d.done:
		case <-time.After(d.stopGrace):
			_ = d.cmd.Process.Kill()
			<-d.done
		}
	})
	return nil
}

func (d *ffplayDecoder) Release() error {
	return d.Stop()
}

func (d *ffplayDecoder) Done() <-chan struct{} { return d.done }

func (d *ffplayDecoder) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	return err
}

func trimStderr(b *bytes.Buffer) string {
	return strings.TrimSpace(b.String())
}

func clampGain(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
