package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon and CLI configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Sounds SoundsConfig `yaml:"sounds"`
	Player PlayerConfig `yaml:"player"`
	Audio  AudioConfig  `yaml:"audio"`
	Power  PowerConfig  `yaml:"power"`
	Fade   FadeConfig   `yaml:"fade"`
	Wakeup WakeupConfig `yaml:"wakeup"`
	Host   HostConfig   `yaml:"host"`
	Web    WebConfig    `yaml:"web"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "file".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type SoundsConfig struct {
	Dir     string `yaml:"dir"`
	Default string `yaml:"default,omitempty"`
}

type PlayerConfig struct {
	Command string `yaml:"command"`
}

type AudioConfig struct {
	// Backend is "osascript" or "memory".
	Backend string `yaml:"backend"`
}

type PowerConfig struct {
	// Backend is "command" or "none".
	Backend string        `yaml:"backend"`
	Ceiling time.Duration `yaml:"ceiling"`
}

type FadeConfig struct {
	Interval time.Duration `yaml:"interval"`
	FloorPct int           `yaml:"floor"`
	StepPct  int           `yaml:"step"`
}

type WakeupConfig struct {
	ExactPermitted bool          `yaml:"exactPermitted"`
	MaxSleep       time.Duration `yaml:"maxSleep"`
}

type HostConfig struct {
	Notifications bool `yaml:"notifications"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

var (
	// DefaultAddr is where the daemon listens and the CLI connects.
	DefaultAddr = "127.0.0.1:7865"
	// DefaultCeiling bounds every wake-lock.
	DefaultCeiling = 10 * time.Minute
)

// DefaultConfig returns the initial configuration.
func DefaultConfig() Config {
	data := DefaultDataDir()
	return Config{
		Store:  StoreConfig{Driver: "sqlite", Path: filepath.Join(data, "adhan-alarm.db")},
		Sounds: SoundsConfig{Dir: filepath.Join(data, "sounds")},
		Player: PlayerConfig{Command: "ffplay"},
		Audio:  AudioConfig{Backend: defaultAudioBackend()},
		Power:  PowerConfig{Backend: "command", Ceiling: DefaultCeiling},
		Fade:   FadeConfig{Interval: 500 * time.Millisecond, FloorPct: 1, StepPct: 5},
		Wakeup: WakeupConfig{ExactPermitted: true, MaxSleep: 60 * time.Second},
		Host:   HostConfig{Notifications: true},
		Web:    WebConfig{Addr: DefaultAddr},
	}
}

// Store persists configuration to disk so the CLI and the daemon share it.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store under the supplied path. Parent directories are created on save.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return &Store{path: path}, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Load reads the configuration file or returns defaults if it does not exist.
// Missing keys keep their defaults; environment overrides are applied last.
func (s *Store) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := DefaultConfig()
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	applyEnv(&cfg)
	return Normalize(cfg)
}

// Save writes the configuration to disk atomically.
func (s *Store) Save(cfg Config) error {
	cfg, err := Normalize(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Web.Addr = envOrDefault(EnvAddr, cfg.Web.Addr)
	cfg.Player.Command = envOrDefault("ADHAN_ALARM_PLAYER", cfg.Player.Command)
	cfg.Sounds.Dir = envOrDefault("ADHAN_ALARM_SOUNDS", cfg.Sounds.Dir)
	cfg.Wakeup.ExactPermitted = envOrDefaultBool("ADHAN_ALARM_EXACT", cfg.Wakeup.ExactPermitted)
}
