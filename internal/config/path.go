package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	EnvConfig = "ADHAN_ALARM_CONFIG"
	EnvAddr   = "ADHAN_ALARM_ADDR"
)

// DefaultPath returns $ADHAN_ALARM_CONFIG or ~/.config/adhan-alarm/config.yaml (or a cwd fallback).
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "adhan-alarm", "config.yaml")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, "adhan-alarm-config.yaml")
}

// DefaultDataDir holds the trigger store and the built-in sounds.
func DefaultDataDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "adhan-alarm")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, "adhan-alarm-data")
	}
	return filepath.Join(home, ".local", "share", "adhan-alarm")
}

func defaultAudioBackend() string {
	if runtime.GOOS == "darwin" {
		return "osascript"
	}
	return "memory"
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultBool(key string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
