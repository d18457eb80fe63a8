package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"adhan-alarm/internal/domain"
)

// playbackSession is the single live activation owned by the PlaybackEngine.
// The engine owes a volume restore while volume.Captured() and a release while
// wakeLock is non-nil.
type playbackSession struct {
	id      string
	trigger domain.Trigger
	alert   domain.Alert
	since   time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   domain.PlaybackState
	gainPct int
	fading  bool

	decoder   domain.Decoder
	wakeLock  domain.WakeLock
	focusHeld bool
	volume    domain.VolumeOverride
	fade      *fadeStepper
}

func newPlaybackSession(parent context.Context, t domain.Trigger, now time.Time) *playbackSession {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &playbackSession{
		id:      uuid.NewString(),
		trigger: t,
		alert:   domain.AlertFor(t),
		since:   now,
		ctx:     ctx,
		cancel:  cancel,
		state:   domain.StateAcquiring,
		volume:  domain.VolumeOverride{Stream: "alarm", Original: domain.VolumeUnset},
	}
}

func (s *playbackSession) setState(state domain.PlaybackState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state != domain.StatePlaying {
		s.fading = false
	}
}

func (s *playbackSession) getState() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *playbackSession) status() domain.PlaybackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PlaybackStatus{
		State:     s.state,
		SessionID: s.id,
		Trigger:   s.trigger.Name,
		Kind:      s.trigger.Kind,
		Since:     s.since,
		GainPct:   s.gainPct,
		Fading:    s.fading,
	}
}
