package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

// PlaybackUseCase is the primary port for the playback state machine.
type PlaybackUseCase interface {
	Activate(ctx context.Context, t domain.Trigger) (domain.Outcome, error)
	OnTriggerFired(ctx context.Context, name, sound string, kind domain.Kind)
	Deactivate(reason domain.StopReason)
	StopActivePlayback()
	Status() domain.PlaybackStatus
}

// PlaybackConfig tunes the engine.
type PlaybackConfig struct {
	WakeLockTag     string
	WakeLockCeiling time.Duration
	FadeInterval    time.Duration
	Policy          domain.PlaybackPolicy
}

// DefaultPlaybackConfig returns a 10 minute wake-lock ceiling and a 500ms fade step.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		WakeLockTag:     "adhan-alarm:playback",
		WakeLockCeiling: 10 * time.Minute,
		FadeInterval:    500 * time.Millisecond,
		Policy:          domain.DefaultPlaybackPolicy(),
	}
}

// PlaybackDeps groups the secondary ports the engine drives.
type PlaybackDeps struct {
	Audio    domain.AudioSystem
	Power    domain.PowerManager
	Resolver domain.SoundResolver
	Decoders domain.DecoderFactory
	Host     domain.SessionHost
	Prefs    domain.PreferenceStore
	Clock    clockwork.Clock
}

// PlaybackEngine owns at most one live session. Activate and Deactivate are
// serialized on mu; a new activation always tears down the previous one first.
type PlaybackEngine struct {
	deps PlaybackDeps
	cfg  PlaybackConfig

	mu      sync.Mutex
	current *playbackSession
	closed  bool

	watchers sync.WaitGroup
}

var _ PlaybackUseCase = (*PlaybackEngine)(nil)

// NewPlaybackEngine validates deps and fills config defaults.
func NewPlaybackEngine(deps PlaybackDeps, cfg PlaybackConfig) (*PlaybackEngine, error) {
	if deps.Audio == nil || deps.Power == nil || deps.Resolver == nil || deps.Decoders == nil {
		return nil, errors.New("audio, power, resolver and decoder factory are required")
	}
	if deps.Host == nil {
		deps.Host = nopHost{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	def := DefaultPlaybackConfig()
	if cfg.WakeLockTag == "" {
		cfg.WakeLockTag = def.WakeLockTag
	}
	if cfg.WakeLockCeiling <= 0 {
		cfg.WakeLockCeiling = def.WakeLockCeiling
	}
	if cfg.FadeInterval <= 0 {
		cfg.FadeInterval = def.FadeInterval
	}
	if cfg.Policy.FadeStepPct <= 0 {
		cfg.Policy = def.Policy
	}
	return &PlaybackEngine{deps: deps, cfg: cfg}, nil
}

// OnTriggerFired is the wake-up entry point. Errors are logged; there is no caller to return them to.
func (e *PlaybackEngine) OnTriggerFired(ctx context.Context, name, sound string, kind domain.Kind) {
	t := domain.Trigger{Name: name, Sound: sound, Kind: kind, FireAt: e.deps.Clock.Now()}
	outcome, err := e.Activate(ctx, t)
	if err != nil {
		logging.Errorf("trigger %s: activation failed: %v", name, err)
		return
	}
	logging.Infof("trigger %s: %s", name, outcome)
}

// Activate starts playback for t, replacing any live session.
func (e *PlaybackEngine) Activate(ctx context.Context, t domain.Trigger) (domain.Outcome, error) {
	if t.Kind == "" {
		t.Kind = domain.KindAdhan
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", fmt.Errorf("activate %s: engine closed", t.Name)
	}

	if prev := e.current; prev != nil {
		logging.Infof("playback: %s replaces session %s (%s)", t.Name, prev.id, prev.trigger.Name)
		e.release(prev, domain.ReasonReplaced)
	}

	sess := newPlaybackSession(ctx, t, e.deps.Clock.Now())
	e.current = sess
	logging.Debugf("playback %s: acquiring for %s (%s)", sess.id, t.Name, t.Kind)

	lock, err := e.deps.Power.Acquire(sess.ctx, e.cfg.WakeLockTag, e.cfg.WakeLockCeiling)
	if err != nil {
		logging.Warnf("playback %s: wake-lock unavailable, continuing: %v", sess.id, err)
	} else {
		sess.wakeLock = lock
	}

	e.deps.Host.Present(sess.alert)

	prefs := e.loadPreferences(sess.ctx)

	if t.Kind == domain.KindAdhan {
		mode, err := e.deps.Audio.RingerMode()
		if err != nil {
			logging.Warnf("playback %s: ringer mode unknown, assuming normal: %v", sess.id, err)
			mode = domain.RingerNormal
		}
		if domain.ShouldSuppressAudio(mode, prefs.SmartDND) {
			logging.Infof("playback %s: smart DND suppresses audio (ringer=%s)", sess.id, mode)
			e.release(sess, domain.ReasonSuppressed)
			return domain.OutcomeSuppressed, nil
		}
	}

	src, err := e.deps.Resolver.Resolve(t.Sound, prefs.CustomSound)
	if err != nil {
		e.release(sess, domain.ReasonFailed)
		return "", fmt.Errorf("activate %s: %w", t.Name, classify(domain.ErrSoundUnavailable, err))
	}
	logging.Debugf("playback %s: sound %q resolved to %s (%s)", sess.id, t.Sound, src.Path, src.Origin)

	e.overrideVolume(sess, prefs)
	e.liftMute(sess)

	if err := e.deps.Audio.RequestFocus(); err != nil {
		logging.Warnf("playback %s: audio focus refused, playing anyway: %v", sess.id, err)
	} else {
		sess.focusHeld = true
	}

	fade := e.cfg.Policy.UsesFade(t.Kind, prefs)
	gain := e.cfg.Policy.InitialGain(fade)
	opts := domain.DecoderOptions{
		Looping:    t.Kind == domain.KindAlarm,
		AlarmUsage: true,
		GainPct:    gain,
	}
	if fade {
		opts.FadeDuration = time.Duration(e.cfg.Policy.FadeSteps()) * e.cfg.FadeInterval
	}
	dec, err := e.deps.Decoders.Open(sess.ctx, src, opts)
	if err != nil {
		e.release(sess, domain.ReasonFailed)
		return "", fmt.Errorf("activate %s: %w", t.Name, classify(domain.ErrAudioDevice, err))
	}
	sess.decoder = dec
	sess.gainPct = gain

	if err := dec.Start(); err != nil {
		e.release(sess, domain.ReasonFailed)
		return "", fmt.Errorf("activate %s: start: %w", t.Name, classify(domain.ErrAudioDevice, err))
	}

	sess.mu.Lock()
	sess.state = domain.StatePlaying
	sess.fading = fade
	sess.mu.Unlock()

	if fade {
		sess.fade = startFade(sess, e.deps.Clock, e.cfg.FadeInterval, e.cfg.Policy)
	}

	e.watchers.Add(1)
	go e.watch(sess)

	logging.Infof("playback %s: playing %s (looping=%t, fade=%t, volume=%d)",
		sess.id, t.Name, t.Kind == domain.KindAlarm, fade, sess.volume.Target)
	return domain.OutcomePlaying, nil
}

// Deactivate tears down the live session, if any.
func (e *PlaybackEngine) Deactivate(reason domain.StopReason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return
	}
	e.release(e.current, reason)
}

// StopActivePlayback is the user-facing stop. It is a no-op when idle.
func (e *PlaybackEngine) StopActivePlayback() {
	e.Deactivate(domain.ReasonStopped)
}

// Status reports the live session, or IDLE.
func (e *PlaybackEngine) Status() domain.PlaybackStatus {
	e.mu.Lock()
	sess := e.current
	e.mu.Unlock()
	if sess == nil {
		return domain.PlaybackStatus{State: domain.StateIdle}
	}
	return sess.status()
}

// Close tears down the live session and waits for background goroutines.
func (e *PlaybackEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	if e.current != nil {
		e.release(e.current, domain.ReasonEngineClose)
	}
	e.mu.Unlock()
	e.watchers.Wait()
	return nil
}

// watch ends the session when the decoder finishes on its own.
func (e *PlaybackEngine) watch(sess *playbackSession) {
	defer e.watchers.Done()

	select {
	case <-sess.decoder.Done():
	case <-sess.ctx.Done():
		return
	}

	if err := sess.decoder.Err(); err != nil {
		logging.Warnf("playback %s: decoder ended with error: %v", sess.id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != sess {
		return
	}
	logging.Debugf("playback %s: completed", sess.id)
	e.release(sess, domain.ReasonCompleted)
}

func (e *PlaybackEngine) loadPreferences(ctx context.Context) domain.Preferences {
	if e.deps.Prefs == nil {
		return domain.DefaultPreferences()
	}
	p, err := e.deps.Prefs.LoadPreferences(ctx)
	if err != nil {
		logging.Warnf("playback: preferences unavailable, using defaults: %v", err)
		return domain.DefaultPreferences()
	}
	return p.Normalize()
}

// overrideVolume records the original level before changing it. A failed set
// still owes a restore.
func (e *PlaybackEngine) overrideVolume(sess *playbackSession, prefs domain.Preferences) {
	orig, err := e.deps.Audio.StreamVolume()
	if err != nil {
		logging.Warnf("playback %s: cannot read stream volume, leaving it alone: %v", sess.id, err)
		return
	}
	maxVol, err := e.deps.Audio.MaxStreamVolume()
	if err != nil {
		logging.Warnf("playback %s: cannot read max stream volume, leaving it alone: %v", sess.id, err)
		return
	}

	target := e.cfg.Policy.TargetVolume(sess.trigger.Kind, prefs.AdhanVolumePercent, maxVol)
	sess.volume.Original = orig
	sess.volume.Target = target
	if err := e.deps.Audio.SetStreamVolume(target); err != nil {
		logging.Warnf("playback %s: set stream volume %d/%d: %v", sess.id, target, maxVol, err)
		return
	}
	logging.Debugf("playback %s: stream volume %d -> %d (max %d)", sess.id, orig, target, maxVol)
}

// liftMute unmutes the output for the session when the backend can mute it
// separately from the level. A level alone cannot make a muted output audible.
func (e *PlaybackEngine) liftMute(sess *playbackSession) {
	muter, ok := e.deps.Audio.(domain.OutputMuter)
	if !ok {
		return
	}
	muted, err := muter.OutputMuted()
	if err != nil {
		logging.Warnf("playback %s: cannot read output mute: %v", sess.id, err)
		return
	}
	if !muted {
		return
	}
	if err := muter.SetOutputMuted(false); err != nil {
		logging.Warnf("playback %s: unmute output: %v", sess.id, err)
		return
	}
	sess.volume.Unmuted = true
	logging.Debugf("playback %s: output unmuted", sess.id)
}

// release tears sess down and clears the slot. Callers hold e.mu.
func (e *PlaybackEngine) release(sess *playbackSession, reason domain.StopReason) {
	e.teardown(sess, reason)
	if e.current == sess {
		e.current = nil
	}
}

// teardown releases every resource the session holds. Each step runs even if
// an earlier one failed.
func (e *PlaybackEngine) teardown(sess *playbackSession, reason domain.StopReason) {
	sess.setState(domain.StateStopping)
	sess.cancel()

	e.step(sess, "decoder", func() error {
		var err error
		if sess.decoder != nil {
			if serr := sess.decoder.Stop(); serr != nil {
				logging.Debugf("playback %s: decoder stop: %v", sess.id, serr)
			}
			err = sess.decoder.Release()
		}
		if sess.focusHeld {
			err = errors.Join(err, e.deps.Audio.AbandonFocus())
			sess.focusHeld = false
		}
		return err
	})

	e.step(sess, "volume", func() error {
		var err error
		if sess.volume.Captured() {
			orig := sess.volume.Original
			sess.volume.Original = domain.VolumeUnset
			if serr := e.deps.Audio.SetStreamVolume(orig); serr != nil {
				err = fmt.Errorf("%w: restore to %d: %w", domain.ErrVolumeRestore, orig, serr)
			}
		}
		if sess.volume.Unmuted {
			sess.volume.Unmuted = false
			if muter, ok := e.deps.Audio.(domain.OutputMuter); ok {
				if merr := muter.SetOutputMuted(true); merr != nil {
					err = errors.Join(err, fmt.Errorf("%w: re-mute: %w", domain.ErrVolumeRestore, merr))
				}
			}
		}
		return err
	})

	e.step(sess, "wake-lock", func() error {
		if sess.wakeLock == nil {
			return nil
		}
		lock := sess.wakeLock
		sess.wakeLock = nil
		if err := lock.Release(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrWakeLockRelease, err)
		}
		return nil
	})

	e.step(sess, "fade", func() error {
		if sess.fade != nil {
			sess.fade.Cancel()
			sess.fade = nil
		}
		return nil
	})

	e.step(sess, "host", func() error {
		e.deps.Host.Dismiss(sess.alert, reason)
		return nil
	})

	sess.setState(domain.StateIdle)
	logging.Infof("playback %s: %s ended (%s)", sess.id, sess.trigger.Name, reason)
}

// step runs one teardown action, logging errors and recovering panics.
func (e *PlaybackEngine) step(sess *playbackSession, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("playback %s: teardown %s panicked: %v", sess.id, name, r)
		}
	}()
	if err := fn(); err != nil {
		logging.Errorf("playback %s: teardown %s: %v", sess.id, name, err)
	}
}

// classify wraps err in kind unless it already carries it.
func classify(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

type nopHost struct{}

func (nopHost) Present(domain.Alert)                     {}
func (nopHost) Dismiss(domain.Alert, domain.StopReason) {}
