package domain

import (
	"context"
	"time"
)

// TriggerStore is a secondary port that persists triggers across restarts.
// ListAll returns an unordered snapshot; callers filter by fire time themselves.
type TriggerStore interface {
	Put(ctx context.Context, t Trigger) error
	Remove(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (Trigger, bool, error)
	ListAll(ctx context.Context) ([]Trigger, error)
}

// PreferenceStore is a secondary port that persists user settings.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (Preferences, error)
	SavePreferences(ctx context.Context, p Preferences) error
}

// PreferenceUpdater is implemented by stores that can read, modify and write
// preferences as one atomic step, across processes where the backend allows it.
type PreferenceUpdater interface {
	UpdatePreferences(ctx context.Context, fn func(Preferences) Preferences) (Preferences, error)
}

// WakeupRegistrar registers exact one-shot wake-ups. Registering a name that is
// already registered replaces the previous registration.
type WakeupRegistrar interface {
	Register(ctx context.Context, w Wakeup) error
	Cancel(ctx context.Context, name string) error
}

// AudioSystem controls the alarm-class output stream.
type AudioSystem interface {
	StreamVolume() (int, error)
	MaxStreamVolume() (int, error)
	SetStreamVolume(level int) error
	RingerMode() (RingerMode, error)
	RequestFocus() error
	AbandonFocus() error
}

// OutputMuter is implemented by audio systems whose output can be muted
// independently of the stream level. Alarm-class sessions unmute it.
type OutputMuter interface {
	OutputMuted() (bool, error)
	SetOutputMuted(muted bool) error
}

// DecoderOptions configure how a sound is played.
type DecoderOptions struct {
	Looping bool
	// AlarmUsage routes the stream as alarm-class audio so it bypasses silent/DND muting.
	AlarmUsage bool
	// GainPct is the initial playback gain, 0..100.
	GainPct int
	// FadeDuration is how long the engine's fade to full gain will take. Decoders
	// without live gain control use it to fade on their own.
	FadeDuration time.Duration
}

// Decoder is a single opened sound.
// Done is closed when playback ends, either naturally or after Stop.
type Decoder interface {
	Start() error
	SetGain(pct int) error
	Stop() error
	Release() error
	Done() <-chan struct{}
	Err() error
}

// DecoderFactory opens decoders for resolved sources.
type DecoderFactory interface {
	Open(ctx context.Context, src SoundSource, opts DecoderOptions) (Decoder, error)
}

// WakeLock keeps the CPU awake until released or until its ceiling elapses.
type WakeLock interface {
	Release() error
}

// PowerManager acquires bounded wake-locks.
type PowerManager interface {
	Acquire(ctx context.Context, tag string, ceiling time.Duration) (WakeLock, error)
}

// SoundResolver turns a selector into a playable source.
type SoundResolver interface {
	Resolve(selector string, customPath string) (SoundSource, error)
}

// SessionHost presents the visual alert and lets the hosting process drop its
// elevated priority once playback is over.
type SessionHost interface {
	Present(a Alert)
	Dismiss(a Alert, reason StopReason)
}
