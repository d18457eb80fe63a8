package config

import (
	"fmt"
	"time"
)

// Normalize fills empty values with defaults and rejects invalid ones.
func Normalize(cfg Config) (Config, error) {
	def := DefaultConfig()

	switch cfg.Store.Driver {
	case "":
		cfg.Store.Driver = def.Store.Driver
	case "sqlite", "file":
	default:
		return cfg, fmt.Errorf("store.driver must be sqlite or file, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}

	switch cfg.Audio.Backend {
	case "":
		cfg.Audio.Backend = def.Audio.Backend
	case "osascript", "memory":
	default:
		return cfg, fmt.Errorf("audio.backend must be osascript or memory, got %q", cfg.Audio.Backend)
	}

	switch cfg.Power.Backend {
	case "":
		cfg.Power.Backend = def.Power.Backend
	case "command", "none":
	default:
		return cfg, fmt.Errorf("power.backend must be command or none, got %q", cfg.Power.Backend)
	}
	if cfg.Power.Ceiling <= 0 {
		cfg.Power.Ceiling = def.Power.Ceiling
	}
	if cfg.Power.Ceiling > time.Hour {
		return cfg, fmt.Errorf("power.ceiling must be <=1h")
	}

	if cfg.Fade.Interval <= 0 {
		cfg.Fade.Interval = def.Fade.Interval
	}
	if cfg.Fade.Interval < 50*time.Millisecond {
		return cfg, fmt.Errorf("fade.interval must be >=50ms")
	}
	if cfg.Fade.FloorPct <= 0 {
		cfg.Fade.FloorPct = def.Fade.FloorPct
	}
	if cfg.Fade.StepPct <= 0 {
		cfg.Fade.StepPct = def.Fade.StepPct
	}
	if cfg.Fade.FloorPct > 100 || cfg.Fade.StepPct > 100 {
		return cfg, fmt.Errorf("fade.floor and fade.step must be between 1 and 100")
	}

	if cfg.Wakeup.MaxSleep <= 0 {
		cfg.Wakeup.MaxSleep = def.Wakeup.MaxSleep
	}
	if cfg.Player.Command == "" {
		cfg.Player.Command = def.Player.Command
	}
	if cfg.Sounds.Dir == "" {
		cfg.Sounds.Dir = def.Sounds.Dir
	}
	if cfg.Web.Addr == "" {
		cfg.Web.Addr = def.Web.Addr
	}
	return cfg, nil
}
