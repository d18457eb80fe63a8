package volume

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"adhan-alarm/internal/domain"
)

// scriptRunner executes one AppleScript statement and returns its trimmed output.
type scriptRunner func(script string) (string, error)

func runOsascript(script string) (string, error) {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("osascript failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// AppleScriptAudio implements domain.AudioSystem on the macOS output volume.
// A muted output is reported as silent ringer mode; the mute itself is
// exposed through domain.OutputMuter so alarm-class sessions can lift it.
// macOS has no focus arbitration, so focus requests always succeed.
// This is a secondary adapter.
type AppleScriptAudio struct {
	run scriptRunner
}

var (
	_ domain.AudioSystem = (*AppleScriptAudio)(nil)
	_ domain.OutputMuter = (*AppleScriptAudio)(nil)
)

// NewAppleScriptAudio creates a new AppleScript audio system.
func NewAppleScriptAudio() *AppleScriptAudio {
	return &AppleScriptAudio{run: runOsascript}
}

func (a *AppleScriptAudio) StreamVolume() (int, error) {
	out, err := a.run("output volume of (get volume settings)")
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse output volume %q: %w", out, err)
	}
	return v, nil
}

// MaxStreamVolume is fixed: osascript volumes are percentages.
func (a *AppleScriptAudio) MaxStreamVolume() (int, error) {
	return 100, nil
}

// SetStreamVolume sets the output volume using osascript.
func (a *AppleScriptAudio) SetStreamVolume(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", level)
	}
	_, err := a.run(fmt.Sprintf("set volume output volume %d", level))
	return err
}

func (a *AppleScriptAudio) RingerMode() (domain.RingerMode, error) {
	muted, err := a.OutputMuted()
	if err != nil {
		return domain.RingerNormal, err
	}
	if muted {
		return domain.RingerSilent, nil
	}
	return domain.RingerNormal, nil
}

func (a *AppleScriptAudio) OutputMuted() (bool, error) {
	out, err := a.run("output muted of (get volume settings)")
	if err != nil {
		return false, err
	}
	return out == "true", nil
}

func (a *AppleScriptAudio) SetOutputMuted(muted bool) error {
	script := "set volume without output muted"
	if muted {
		script = "set volume with output muted"
	}
	_, err := a.run(script)
	return err
}

func (a *AppleScriptAudio) RequestFocus() error { return nil }
func (a *AppleScriptAudio) AbandonFocus() error { return nil }
