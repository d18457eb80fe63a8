package wakeup

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

const defaultMaxSleep = 60 * time.Second

// Options configure a Registry.
type Options struct {
	// ExactPermitted mirrors the host's exact-alarm permission. When false,
	// Register fails with domain.ErrPermissionDenied.
	ExactPermitted bool
	// MaxSleep caps how long the registry sleeps before re-checking the clock.
	MaxSleep time.Duration
}

type putRequest struct {
	w     domain.Wakeup
	reply chan struct{}
}

type cancelRequest struct {
	name  string
	reply chan bool
}

// Registry implements domain.WakeupRegistrar. Every mutation is applied by the
// run goroutine before Register or Cancel returns.
type Registry struct {
	clock  clockwork.Clock
	opts   Options
	onFire func(domain.Wakeup)

	putCh      chan putRequest
	cancelCh   chan cancelRequest
	snapshotCh chan chan []domain.Wakeup

	ctx    context.Context
	stop   context.CancelFunc
	done   chan struct{}
	closed sync.Once
}

var _ domain.WakeupRegistrar = (*Registry)(nil)

// New starts a registry. onFire runs on the registry goroutine; it must not block.
func New(ctx context.Context, clock clockwork.Clock, opts Options, onFire func(domain.Wakeup)) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.MaxSleep <= 0 {
		opts.MaxSleep = defaultMaxSleep
	}
	ctx, stop := context.WithCancel(ctx)
	r := &Registry{
		clock:      clock,
		opts:       opts,
		onFire:     onFire,
		putCh:      make(chan putRequest),
		cancelCh:   make(chan cancelRequest),
		snapshotCh: make(chan chan []domain.Wakeup),
		ctx:        ctx,
		stop:       stop,
		done:       make(chan struct{}),
	}
	go r.run()
	return r
}

// Register arms w, replacing any wake-up with the same name.
func (r *Registry) Register(ctx context.Context, w domain.Wakeup) error {
	if !r.opts.ExactPermitted {
		return fmt.Errorf("register %s: %w", w.Name, domain.ErrPermissionDenied)
	}
	req := putRequest{w: w, reply: make(chan struct{})}
	select {
	case r.putCh <- req:
	case <-r.ctx.Done():
		return domain.ErrRegistryClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-req.reply
	return nil
}

// Cancel disarms the named wake-up. Unknown names are not an error.
func (r *Registry) Cancel(ctx context.Context, name string) error {
	req := cancelRequest{name: name, reply: make(chan bool, 1)}
	select {
	case r.cancelCh <- req:
	case <-r.ctx.Done():
		return domain.ErrRegistryClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-req.reply
	return nil
}

// Registered returns the armed wake-ups ordered by fire time.
func (r *Registry) Registered(ctx context.Context) ([]domain.Wakeup, error) {
	reply := make(chan []domain.Wakeup, 1)
	select {
	case r.snapshotCh <- reply:
	case <-r.ctx.Done():
		return nil, domain.ErrRegistryClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-reply, nil
}

// Close stops the registry goroutine. Armed wake-ups are dropped.
func (r *Registry) Close() error {
	r.closed.Do(r.stop)
	<-r.done
	return nil
}

func (r *Registry) run() {
	defer close(r.done)

	h := &wakeupHeap{}
	heap.Init(h)

	var timer clockwork.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		if h.Len() == 0 {
			return nil
		}
		dur := (*h)[0].FireAt.Sub(r.clock.Now())
		if dur > r.opts.MaxSleep {
			dur = r.opts.MaxSleep
		}
		if dur < 0 {
			dur = 0
		}
		timer = r.clock.NewTimer(dur)
		return timer.Chan()
	}

	var timerCh <-chan time.Time
	for {
		select {
		case <-r.ctx.Done():
			return

		case req := <-r.putCh:
			heapPut(h, req.w)
			timerCh = resetTimer()
			logging.Debugf("wake-up %s armed for %s", req.w.Name, req.w.FireAt.Format(time.RFC3339))
			close(req.reply)

		case req := <-r.cancelCh:
			removed := heapRemove(h, req.name)
			timerCh = resetTimer()
			req.reply <- removed

		case reply := <-r.snapshotCh:
			out := append([]domain.Wakeup(nil), (*h)...)
			sort.Sort(wakeupHeap(out))
			reply <- out

		case <-timerCh:
			now := r.clock.Now()
			for h.Len() > 0 && !(*h)[0].FireAt.After(now) {
				w := heapPop(h)
				logging.Infof("wake-up %s fired (due %s)", w.Name, w.FireAt.Format(time.RFC3339))
				r.fire(w)
			}
			timerCh = resetTimer()
		}
	}
}

func (r *Registry) fire(w domain.Wakeup) {
	if r.onFire == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.Errorf("wake-up %s handler panicked: %v", w.Name, rec)
		}
	}()
	r.onFire(w)
}
