package volume

import (
	"sync"

	"adhan-alarm/internal/domain"
)

// MemoryAudio implements domain.AudioSystem in memory.
// Useful for testing or hosts without a controllable mixer.
type MemoryAudio struct {
	mu     sync.Mutex
	level  int
	max    int
	ringer domain.RingerMode
	focus  bool
}

var _ domain.AudioSystem = (*MemoryAudio)(nil)

// NewMemoryAudio creates an in-memory audio system at level out of max.
func NewMemoryAudio(level, max int) *MemoryAudio {
	if max <= 0 {
		max = 100
	}
	return &MemoryAudio{level: level, max: max}
}

func (m *MemoryAudio) StreamVolume() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, nil
}

func (m *MemoryAudio) MaxStreamVolume() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.max, nil
}

func (m *MemoryAudio) SetStreamVolume(level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if level < 0 {
		level = 0
	}
	if level > m.max {
		level = m.max
	}
	m.level = level
	return nil
}

func (m *MemoryAudio) RingerMode() (domain.RingerMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ringer, nil
}

// SetRingerMode changes the reported ringer mode.
func (m *MemoryAudio) SetRingerMode(mode domain.RingerMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ringer = mode
}

func (m *MemoryAudio) RequestFocus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focus = true
	return nil
}

func (m *MemoryAudio) AbandonFocus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focus = false
	return nil
}

// HasFocus reports whether focus is currently held.
func (m *MemoryAudio) HasFocus() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focus
}
