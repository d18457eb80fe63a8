package bootstrap

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"adhan-alarm/internal/adapter/secondary/host"
	"adhan-alarm/internal/adapter/secondary/player"
	"adhan-alarm/internal/adapter/secondary/power"
	"adhan-alarm/internal/adapter/secondary/repository"
	"adhan-alarm/internal/adapter/secondary/volume"
	"adhan-alarm/internal/adapter/secondary/wakeup"
	"adhan-alarm/internal/config"
	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
	"adhan-alarm/internal/usecase"
)

// Store is the durable backend for triggers and preferences.
type Store interface {
	domain.TriggerStore
	domain.PreferenceStore
}

// Services is the assembled runtime graph.
type Services struct {
	Config      config.Config
	Store       Store
	Scheduler   usecase.SchedulerUseCase
	Playback    *usecase.PlaybackEngine
	Preferences usecase.PreferencesUseCase
	Wakeups     *wakeup.Registry
	Host        *host.SessionHost
	Resolver    *player.FileResolver

	closers []io.Closer
}

// Overrides replaces adapters, mostly for tests. Zero values use the configured adapters.
type Overrides struct {
	Clock    clockwork.Clock
	Audio    domain.AudioSystem
	Power    domain.PowerManager
	Decoders domain.DecoderFactory
}

// Build wires all backend dependencies for cfg. The wake-up registry runs until Close.
func Build(ctx context.Context, cfg config.Config, ov Overrides) (*Services, error) {
	cfg, err := config.Normalize(cfg)
	if err != nil {
		return nil, err
	}

	clock := ov.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	store, closer, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	s := &Services{Config: cfg, Store: store}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	s.Host = host.NewForOS(cfg.Host.Notifications)
	s.Resolver = player.NewFileResolver(nil, cfg.Sounds.Dir, cfg.Sounds.Default)

	audio := ov.Audio
	if audio == nil {
		audio = newAudio(cfg.Audio)
	}
	pm := ov.Power
	if pm == nil {
		pm = newPower(cfg.Power)
	}
	decoders := ov.Decoders
	if decoders == nil {
		decoders = player.NewFFPlayDecoders(cfg.Player.Command)
	}

	engine, err := usecase.NewPlaybackEngine(usecase.PlaybackDeps{
		Audio:    audio,
		Power:    pm,
		Resolver: s.Resolver,
		Decoders: decoders,
		Host:     s.Host,
		Prefs:    store,
		Clock:    clock,
	}, usecase.PlaybackConfig{
		WakeLockCeiling: cfg.Power.Ceiling,
		FadeInterval:    cfg.Fade.Interval,
		Policy:          domain.PlaybackPolicy{FadeFloorPct: cfg.Fade.FloorPct, FadeStepPct: cfg.Fade.StepPct},
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Playback = engine

	// onFire must not block the registry goroutine.
	s.Wakeups = wakeup.New(ctx, clock, wakeup.Options{
		ExactPermitted: cfg.Wakeup.ExactPermitted,
		MaxSleep:       cfg.Wakeup.MaxSleep,
	}, func(w domain.Wakeup) {
		go engine.OnTriggerFired(ctx, w.Name, w.Sound, w.Kind)
	})
	s.closers = append(s.closers, engine, s.Wakeups)

	if s.Scheduler, err = usecase.NewSchedulerUseCase(store, s.Wakeups, clock); err != nil {
		s.Close()
		return nil, err
	}
	if s.Preferences, err = usecase.NewPreferencesUseCase(store); err != nil {
		s.Close()
		return nil, err
	}

	logging.Debugf("bootstrap: store=%s(%s) audio=%s power=%s player=%s sounds=%s",
		cfg.Store.Driver, cfg.Store.Path, cfg.Audio.Backend, cfg.Power.Backend, cfg.Player.Command, cfg.Sounds.Dir)
	return s, nil
}

// OpenStore opens only the durable store, for CLI commands that do not need the daemon.
func OpenStore(cfg config.Config) (Store, io.Closer, error) {
	cfg, err := config.Normalize(cfg)
	if err != nil {
		return nil, nil, err
	}
	return openStore(cfg.Store)
}

func openStore(cfg config.StoreConfig) (Store, io.Closer, error) {
	switch cfg.Driver {
	case "file":
		fs, err := repository.NewFileStore(nil, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return fs, nil, nil
	default:
		db, err := repository.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, db, nil
	}
}

func newAudio(cfg config.AudioConfig) domain.AudioSystem {
	if cfg.Backend == "osascript" && runtime.GOOS == "darwin" {
		return volume.NewAppleScriptAudio()
	}
	return volume.NewMemoryAudio(100, 100)
}

func newPower(cfg config.PowerConfig) domain.PowerManager {
	if cfg.Backend == "none" {
		return power.Noop{}
	}
	return power.NewCommandPower()
}

// Close releases the engine, the registry and the store, in reverse build order.
func (s *Services) Close() error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}
