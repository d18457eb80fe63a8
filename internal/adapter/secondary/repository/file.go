package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"adhan-alarm/internal/domain"
)

// FileStore implements domain.TriggerStore and domain.PreferenceStore using a
// single JSON document. Every mutation rewrites the whole file atomically.
// This is a secondary adapter.
type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

var (
	_ domain.TriggerStore      = (*FileStore)(nil)
	_ domain.PreferenceStore   = (*FileStore)(nil)
	_ domain.PreferenceUpdater = (*FileStore)(nil)
)

// NewFileStore creates a JSON store at path on fs. A nil fs means the OS filesystem.
func NewFileStore(fs afero.Fs, path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &FileStore{fs: fs, path: path}, nil
}

// persistedData represents the JSON structure on disk.
type persistedData struct {
	Triggers    []persistedTrigger    `json:"triggers"`
	Preferences *persistedPreferences `json:"preferences,omitempty"`
}

type persistedTrigger struct {
	Name     string `json:"name"`
	FireAtMs int64  `json:"fireAtMs"`
	Sound    string `json:"sound"`
	Kind     string `json:"kind"`
}

type persistedPreferences struct {
	AdhanVolumePercent int    `json:"adhanVolumePercent"`
	SmartDND           bool   `json:"smartDnd"`
	FadeIn             bool   `json:"fadeIn"`
	CustomSound        string `json:"customSound,omitempty"`
	CustomSoundTitle   string `json:"customSoundTitle,omitempty"`
}

// Put inserts or replaces the trigger with the same name.
func (f *FileStore) Put(_ context.Context, t domain.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}

	rec := persistedTrigger{Name: t.Name, FireAtMs: t.FireAt.UnixMilli(), Sound: t.Sound, Kind: string(t.Kind)}
	replaced := false
	for i := range data.Triggers {
		if data.Triggers[i].Name == t.Name {
			data.Triggers[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		data.Triggers = append(data.Triggers, rec)
	}

	return f.write(data)
}

// Remove deletes the trigger. Missing names are not an error.
func (f *FileStore) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}

	kept := data.Triggers[:0]
	for _, t := range data.Triggers {
		if t.Name != name {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(data.Triggers) {
		return nil
	}
	data.Triggers = kept
	return f.write(data)
}

// Get returns the trigger stored under name.
func (f *FileStore) Get(_ context.Context, name string) (domain.Trigger, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return domain.Trigger{}, false, err
	}
	for _, t := range data.Triggers {
		if t.Name == name {
			return t.toDomain(), true, nil
		}
	}
	return domain.Trigger{}, false, nil
}

// ListAll returns every stored trigger ordered by fire time.
func (f *FileStore) ListAll(_ context.Context) ([]domain.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Trigger, 0, len(data.Triggers))
	for _, t := range data.Triggers {
		out = append(out, t.toDomain())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

// LoadPreferences returns stored preferences, or defaults before the first save.
func (f *FileStore) LoadPreferences(_ context.Context) (domain.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return domain.Preferences{}, err
	}
	return data.preferences(), nil
}

// SavePreferences clamps and stores p.
func (f *FileStore) SavePreferences(_ context.Context, p domain.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}
	data.setPreferences(p)
	return f.write(data)
}

// UpdatePreferences applies fn under the store lock. The lock covers this
// process only; the file driver assumes a single writer process.
func (f *FileStore) UpdatePreferences(_ context.Context, fn func(domain.Preferences) domain.Preferences) (domain.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return domain.Preferences{}, err
	}
	next := fn(data.preferences()).Normalize()
	data.setPreferences(next)
	if err := f.write(data); err != nil {
		return domain.Preferences{}, err
	}
	return next, nil
}

func (d persistedData) preferences() domain.Preferences {
	if d.Preferences == nil {
		return domain.DefaultPreferences()
	}
	p := d.Preferences
	return domain.Preferences{
		AdhanVolumePercent: p.AdhanVolumePercent,
		SmartDND:           p.SmartDND,
		FadeIn:             p.FadeIn,
		CustomSound:        p.CustomSound,
		CustomSoundTitle:   p.CustomSoundTitle,
	}.Normalize()
}

func (d *persistedData) setPreferences(p domain.Preferences) {
	p = p.Normalize()
	d.Preferences = &persistedPreferences{
		AdhanVolumePercent: p.AdhanVolumePercent,
		SmartDND:           p.SmartDND,
		FadeIn:             p.FadeIn,
		CustomSound:        p.CustomSound,
		CustomSoundTitle:   p.CustomSoundTitle,
	}
}

func (t persistedTrigger) toDomain() domain.Trigger {
	return domain.Trigger{
		Name:   t.Name,
		FireAt: time.UnixMilli(t.FireAtMs),
		Sound:  t.Sound,
		Kind:   domain.Kind(t.Kind),
	}
}

// read loads the document. Callers hold f.mu.
func (f *FileStore) read() (persistedData, error) {
	raw, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistedData{}, nil
		}
		return persistedData{}, fmt.Errorf("read store: %w", err)
	}

	var data persistedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return persistedData{}, fmt.Errorf("unmarshal store: %w", err)
	}
	return data, nil
}

// write replaces the document. Callers hold f.mu.
func (f *FileStore) write(data persistedData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	// Atomic write
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
