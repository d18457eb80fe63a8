package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"adhan-alarm/internal/domain"
)

// fakeClock covers both the interface and struct forms of clockwork's fake.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntil(n int)
}

type memTriggerStore struct {
	mu       sync.Mutex
	triggers map[string]domain.Trigger
	putErr   error
	listErr  error
}

func newMemTriggerStore() *memTriggerStore {
	return &memTriggerStore{triggers: make(map[string]domain.Trigger)}
}

func (s *memTriggerStore) Put(_ context.Context, t domain.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.triggers[t.Name] = t
	return nil
}

func (s *memTriggerStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.triggers, name)
	return nil
}

func (s *memTriggerStore) Get(_ context.Context, name string) (domain.Trigger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[name]
	return t, ok, nil
}

func (s *memTriggerStore) ListAll(context.Context) ([]domain.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Trigger, 0, len(s.triggers))
	for _, t := range s.triggers {
		out = append(out, t)
	}
	return out, nil
}

type fakeRegistrar struct {
	mu         sync.Mutex
	registered map[string]domain.Wakeup
	calls      int
	failFor    map[string]error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: make(map[string]domain.Wakeup), failFor: make(map[string]error)}
}

func (r *fakeRegistrar) Register(_ context.Context, w domain.Wakeup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err := r.failFor[w.Name]; err != nil {
		return err
	}
	r.registered[w.Name] = w
	return nil
}

func (r *fakeRegistrar) Cancel(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registered, name)
	return nil
}

func (r *fakeRegistrar) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.registered))
	for n := range r.registered {
		out = append(out, n)
	}
	return out
}

type fakeAudio struct {
	mu        sync.Mutex
	volume    int
	max       int
	ringer    domain.RingerMode
	sets      []int
	failSetTo map[int]error
	focus     int
	abandoned int
	muted     bool
	muteSets  []bool
}

func newFakeAudio(volume, max int) *fakeAudio {
	return &fakeAudio{volume: volume, max: max, failSetTo: make(map[int]error)}
}

func (a *fakeAudio) StreamVolume() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume, nil
}

func (a *fakeAudio) MaxStreamVolume() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.max, nil
}

func (a *fakeAudio) SetStreamVolume(level int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sets = append(a.sets, level)
	if err := a.failSetTo[level]; err != nil {
		return err
	}
	a.volume = level
	return nil
}

func (a *fakeAudio) RingerMode() (domain.RingerMode, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ringer, nil
}

func (a *fakeAudio) RequestFocus() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.focus++
	return nil
}

func (a *fakeAudio) AbandonFocus() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abandoned++
	return nil
}

func (a *fakeAudio) OutputMuted() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.muted, nil
}

func (a *fakeAudio) SetOutputMuted(muted bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muteSets = append(a.muteSets, muted)
	a.muted = muted
	return nil
}

func (a *fakeAudio) isMuted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.muted
}

func (a *fakeAudio) muteCalls() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.muteSets...)
}

func (a *fakeAudio) current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

func (a *fakeAudio) setCalls() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.sets...)
}

type fakeLock struct {
	mu       sync.Mutex
	released int
	err      error
}

func (l *fakeLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	return l.err
}

func (l *fakeLock) releaseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

type fakePower struct {
	mu       sync.Mutex
	locks    []*fakeLock
	ceilings []time.Duration
	err      error
	lockErr  error
}

func (p *fakePower) Acquire(_ context.Context, _ string, ceiling time.Duration) (domain.WakeLock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	l := &fakeLock{err: p.lockErr}
	p.locks = append(p.locks, l)
	p.ceilings = append(p.ceilings, ceiling)
	return l, nil
}

func (p *fakePower) lock(i int) *fakeLock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locks[i]
}

type fakeResolver struct {
	err error
}

func (r fakeResolver) Resolve(selector, _ string) (domain.SoundSource, error) {
	if r.err != nil {
		return domain.SoundSource{}, r.err
	}
	return domain.SoundSource{Selector: selector, Path: "/sounds/" + selector + ".mp3", Origin: domain.OriginBuiltin}, nil
}

type fakeDecoder struct {
	opts domain.DecoderOptions

	mu       sync.Mutex
	gains    []int
	started  bool
	stopped  bool
	released bool
	startErr error
	done     chan struct{}
	once     sync.Once
}

func (d *fakeDecoder) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	return nil
}

func (d *fakeDecoder) SetGain(pct int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gains = append(d.gains, pct)
	return nil
}

func (d *fakeDecoder) Stop() error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.finish()
	return nil
}

func (d *fakeDecoder) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	return nil
}

func (d *fakeDecoder) Done() <-chan struct{} { return d.done }
func (d *fakeDecoder) Err() error            { return nil }

func (d *fakeDecoder) finish() { d.once.Do(func() { close(d.done) }) }

func (d *fakeDecoder) lastGain() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.gains) == 0 {
		return d.opts.GainPct
	}
	return d.gains[len(d.gains)-1]
}

func (d *fakeDecoder) gainCalls() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.gains...)
}

func (d *fakeDecoder) isReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

type fakeFactory struct {
	mu       sync.Mutex
	decoders []*fakeDecoder
	openErr  error
	startErr error
}

func (f *fakeFactory) Open(_ context.Context, _ domain.SoundSource, opts domain.DecoderOptions) (domain.Decoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	d := &fakeDecoder{opts: opts, startErr: f.startErr, done: make(chan struct{})}
	f.decoders = append(f.decoders, d)
	return d, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.decoders)
}

func (f *fakeFactory) decoder(i int) *fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decoders[i]
}

type fakeHost struct {
	mu        sync.Mutex
	presented []domain.Alert
	dismissed []domain.StopReason
}

func (h *fakeHost) Present(a domain.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presented = append(h.presented, a)
}

func (h *fakeHost) Dismiss(_ domain.Alert, reason domain.StopReason) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dismissed = append(h.dismissed, reason)
}

func (h *fakeHost) reasons() []domain.StopReason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.StopReason(nil), h.dismissed...)
}

type fakePrefs struct {
	prefs domain.Preferences
	err   error
}

func (p *fakePrefs) LoadPreferences(context.Context) (domain.Preferences, error) {
	return p.prefs, p.err
}

func (p *fakePrefs) SavePreferences(_ context.Context, prefs domain.Preferences) error {
	p.prefs = prefs
	return nil
}

var errBoom = errors.New("boom")
