package usecase

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

// fadeStepper raises playback gain on a ticker bound to one session.
// It never touches the system stream volume.
type fadeStepper struct {
	ticker clockwork.Ticker
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// startFade creates the ticker synchronously so the first tick is measured
// from the moment playback started.
func startFade(sess *playbackSession, clock clockwork.Clock, interval time.Duration, policy domain.PlaybackPolicy) *fadeStepper {
	f := &fadeStepper{
		ticker: clock.NewTicker(interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go f.run(sess, policy)
	return f
}

func (f *fadeStepper) run(sess *playbackSession, policy domain.PlaybackPolicy) {
	defer close(f.done)
	defer f.ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-f.ticker.Chan():
			if finished := stepGain(sess, policy); finished {
				return
			}
		}
	}
}

// Cancel stops the stepper and waits for its goroutine to exit. Safe to call twice.
func (f *fadeStepper) Cancel() {
	f.once.Do(func() { close(f.stop) })
	<-f.done
}

// stepGain applies one fade step. It reports true once the fade is over, either
// because full gain was reached or because the session is no longer playing.
func stepGain(sess *playbackSession, policy domain.PlaybackPolicy) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != domain.StatePlaying || sess.decoder == nil {
		sess.fading = false
		return true
	}

	next, complete := policy.NextGain(sess.gainPct)
	if err := sess.decoder.SetGain(next); err != nil {
		logging.Warnf("playback %s: fade step to %d%% failed: %v", sess.id, next, err)
	}
	sess.gainPct = next
	logging.Tracef("playback %s: fade gain %d%%", sess.id, next)
	if complete {
		sess.fading = false
	}
	return complete
}
