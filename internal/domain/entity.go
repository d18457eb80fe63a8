package domain

import (
	"strings"
	"time"
)

// Kind distinguishes prayer calls from user alarms.
type Kind string

const (
	KindAdhan Kind = "ADHAN"
	KindAlarm Kind = "ALARM"
)

// ParseKind accepts either case ("adhan", "ALARM").
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindAdhan:
		return KindAdhan, nil
	case KindAlarm:
		return KindAlarm, nil
	default:
		return "", ErrInvalidKind
	}
}

// Trigger is a persisted one-shot wake-up request.
// Name is the identity: scheduling the same name again replaces the previous trigger.
type Trigger struct {
	Name   string
	FireAt time.Time
	Sound  string
	Kind   Kind
}

// Validate checks the trigger can be persisted and registered.
func (t Trigger) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidTrigger
	}
	if t.FireAt.IsZero() {
		return ErrInvalidTrigger
	}
	if t.Kind != KindAdhan && t.Kind != KindAlarm {
		return ErrInvalidKind
	}
	return nil
}

// Normalized truncates FireAt to millisecond precision, the resolution triggers are stored with.
func (t Trigger) Normalized() Trigger {
	t.FireAt = time.UnixMilli(t.FireAt.UnixMilli())
	return t
}

// Wakeup is the payload handed to the wake-up registrar. It points back at the trigger identity.
type Wakeup struct {
	Name   string
	FireAt time.Time
	Sound  string
	Kind   Kind
}

// WakeupFor builds the registration payload for a trigger.
func WakeupFor(t Trigger) Wakeup {
	return Wakeup{Name: t.Name, FireAt: t.FireAt, Sound: t.Sound, Kind: t.Kind}
}

// Preferences are the user settings consulted at playback time.
type Preferences struct {
	AdhanVolumePercent int
	SmartDND           bool
	FadeIn             bool
	CustomSound        string
	CustomSoundTitle   string
}

// DefaultPreferences returns the settings used before the user changes anything.
func DefaultPreferences() Preferences {
	return Preferences{
		AdhanVolumePercent: 100,
	}
}

// Normalize clamps the loudness percentage into 0..100.
func (p Preferences) Normalize() Preferences {
	if p.AdhanVolumePercent < 0 {
		p.AdhanVolumePercent = 0
	}
	if p.AdhanVolumePercent > 100 {
		p.AdhanVolumePercent = 100
	}
	return p
}

// RingerMode mirrors the system interruption mode.
type RingerMode int

const (
	RingerNormal RingerMode = iota
	RingerVibrate
	RingerSilent
)

func (m RingerMode) String() string {
	switch m {
	case RingerNormal:
		return "normal"
	case RingerVibrate:
		return "vibrate"
	case RingerSilent:
		return "silent"
	default:
		return "unknown"
	}
}

// PlaybackState is the engine state machine position.
type PlaybackState string

const (
	StateIdle      PlaybackState = "IDLE"
	StateAcquiring PlaybackState = "ACQUIRING"
	StatePlaying   PlaybackState = "PLAYING"
	StateStopping  PlaybackState = "STOPPING"
)

// StopReason records why a session was torn down.
type StopReason string

const (
	ReasonCompleted   StopReason = "completed"
	ReasonStopped     StopReason = "stopped"
	ReasonReplaced    StopReason = "replaced"
	ReasonSuppressed  StopReason = "suppressed"
	ReasonFailed      StopReason = "failed"
	ReasonEngineClose StopReason = "engine_closed"
)

// Outcome reports what an activation did.
type Outcome string

const (
	OutcomePlaying    Outcome = "playing"
	OutcomeSuppressed Outcome = "suppressed"
)

// VolumeUnset is the sentinel for "original volume not captured".
const VolumeUnset = -1

// VolumeOverride is a system-wide volume mutation owed a restore.
type VolumeOverride struct {
	Stream   string
	Original int
	Target   int
	// Unmuted is set when the session lifted an output mute and owes it back.
	Unmuted bool
}

// Captured reports whether a restore is owed.
func (v VolumeOverride) Captured() bool {
	return v.Original != VolumeUnset
}

// SoundOrigin says where a resolved sound came from.
type SoundOrigin string

const (
	OriginBuiltin SoundOrigin = "builtin"
	OriginCustom  SoundOrigin = "custom"
	OriginDefault SoundOrigin = "default"
)

// SoundSource is a playable, resolved sound.
type SoundSource struct {
	Selector string
	Path     string
	Origin   SoundOrigin
}

// Alert is what the session host presents to the user.
type Alert struct {
	Name  string
	Kind  Kind
	Title string
	Body  string
}

// PlaybackStatus is a read-only view of the engine.
type PlaybackStatus struct {
	State     PlaybackState
	SessionID string
	Trigger   string
	Kind      Kind
	Since     time.Time
	GainPct   int
	Fading    bool
}
