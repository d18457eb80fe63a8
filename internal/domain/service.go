package domain

import (
	"sort"
	"strings"
	"time"
)

// ShouldSuppressAudio reports whether an adhan should stay silent.
// Only a silent or vibrating ringer with smart DND enabled suppresses audio.
func ShouldSuppressAudio(mode RingerMode, smartDND bool) bool {
	if !smartDND {
		return false
	}
	return mode == RingerSilent || mode == RingerVibrate
}

// SchedulerService provides pure domain logic for the scheduler.
type SchedulerService struct{}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService() *SchedulerService {
	return &SchedulerService{}
}

// IsPending reports whether a trigger is strictly in the future. No grace window.
func (s *SchedulerService) IsPending(t Trigger, now time.Time) bool {
	return t.FireAt.After(now)
}

// Pending filters triggers to the ones still ahead of now, earliest first.
func (s *SchedulerService) Pending(all []Trigger, now time.Time) []Trigger {
	out := make([]Trigger, 0, len(all))
	for _, t := range all {
		if s.IsPending(t, now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// Partition splits stored triggers into future ones to re-register and past-due ones to leave alone.
func (s *SchedulerService) Partition(all []Trigger, now time.Time) (future, pastDue []Trigger) {
	for _, t := range all {
		if s.IsPending(t, now) {
			future = append(future, t)
		} else {
			pastDue = append(pastDue, t)
		}
	}
	return future, pastDue
}

// PlaybackPolicy holds the volume and fade arithmetic used by the playback engine.
type PlaybackPolicy struct {
	FadeFloorPct int
	FadeStepPct  int
}

// DefaultPlaybackPolicy starts fades at 1% and adds 5% per step.
func DefaultPlaybackPolicy() PlaybackPolicy {
	return PlaybackPolicy{FadeFloorPct: 1, FadeStepPct: 5}
}

// TargetVolume computes the stream level to apply. Alarms always use the maximum;
// adhan honors the user's loudness percentage.
func (p PlaybackPolicy) TargetVolume(kind Kind, percent, max int) int {
	if max <= 0 {
		return 0
	}
	if kind == KindAlarm {
		return max
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return max * percent / 100
}

// UsesFade reports whether a session starts at the fade floor.
func (p PlaybackPolicy) UsesFade(kind Kind, prefs Preferences) bool {
	return kind == KindAdhan && prefs.FadeIn
}

// NextGain advances a fade by one step and reports whether the fade is complete.
func (p PlaybackPolicy) NextGain(current int) (int, bool) {
	step := p.FadeStepPct
	if step <= 0 {
		step = 5
	}
	next := current + step
	if next >= 100 {
		return 100, true
	}
	return next, false
}

// InitialGain is the gain a decoder starts with.
func (p PlaybackPolicy) InitialGain(fade bool) int {
	if !fade {
		return 100
	}
	if p.FadeFloorPct <= 0 || p.FadeFloorPct > 100 {
		return 1
	}
	return p.FadeFloorPct
}

// FadeSteps counts the steps a fade takes from the floor to full gain.
func (p PlaybackPolicy) FadeSteps() int {
	steps := 0
	for g := p.InitialGain(true); g < 100; steps++ {
		g, _ = p.NextGain(g)
	}
	return steps
}

var prayerTitles = map[string]string{
	"fajr":    "Fajr",
	"sunrise": "Sunrise",
	"dhuhr":   "Dhuhr",
	"asr":     "Asr",
	"maghrib": "Maghrib",
	"isha":    "Isha",
}

// AlertFor builds the visual alert for a trigger. Prayer names may carry a
// day suffix ("fajr_1"); only the prefix is shown.
func AlertFor(t Trigger) Alert {
	if t.Kind == KindAlarm {
		return Alert{Name: t.Name, Kind: t.Kind, Title: "Alarm", Body: "Wake up!"}
	}
	base := t.Name
	if i := strings.Index(base, "_"); i > 0 {
		base = base[:i]
	}
	label, ok := prayerTitles[strings.ToLower(base)]
	if !ok {
		label = base
	}
	if label == "" {
		label = "Prayer"
	}
	return Alert{
		Name:  t.Name,
		Kind:  t.Kind,
		Title: "Prayer Time",
		Body:  "It is time for " + label,
	}
}
