package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

// PreferencesPatch carries the fields to change. Nil fields are left alone.
type PreferencesPatch struct {
	AdhanVolumePercent *int
	SmartDND           *bool
	FadeIn             *bool
	CustomSound        *string
	CustomSoundTitle   *string
}

// PreferencesUseCase reads and updates user settings.
type PreferencesUseCase interface {
	Get(ctx context.Context) (domain.Preferences, error)
	Update(ctx context.Context, patch PreferencesPatch) (domain.Preferences, error)
}

type preferencesInteractor struct {
	store domain.PreferenceStore
	mu    sync.Mutex
}

// NewPreferencesUseCase creates a new preferences use case.
func NewPreferencesUseCase(store domain.PreferenceStore) (PreferencesUseCase, error) {
	if store == nil {
		return nil, errors.New("preference store is required")
	}
	return &preferencesInteractor{store: store}, nil
}

func (p *preferencesInteractor) Get(ctx context.Context) (domain.Preferences, error) {
	prefs, err := p.store.LoadPreferences(ctx)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w: %w", domain.ErrPersistence, err)
	}
	return prefs.Normalize(), nil
}

// Update applies patch on top of the stored preferences as one atomic step.
// The loudness percentage is clamped to 0..100.
func (p *preferencesInteractor) Update(ctx context.Context, patch PreferencesPatch) (domain.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		prefs domain.Preferences
		err   error
	)
	if u, ok := p.store.(domain.PreferenceUpdater); ok {
		prefs, err = u.UpdatePreferences(ctx, patch.apply)
	} else {
		prefs, err = p.loadAndSave(ctx, patch)
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("update preferences: %w: %w", domain.ErrPersistence, err)
	}

	logging.Infof("preferences updated: volume=%d%% smartDnd=%t fadeIn=%t custom=%q",
		prefs.AdhanVolumePercent, prefs.SmartDND, prefs.FadeIn, prefs.CustomSound)
	return prefs, nil
}

func (p *preferencesInteractor) loadAndSave(ctx context.Context, patch PreferencesPatch) (domain.Preferences, error) {
	prefs, err := p.store.LoadPreferences(ctx)
	if err != nil {
		return domain.Preferences{}, err
	}
	prefs = patch.apply(prefs)
	if err := p.store.SavePreferences(ctx, prefs); err != nil {
		return domain.Preferences{}, err
	}
	return prefs, nil
}

func (patch PreferencesPatch) apply(prefs domain.Preferences) domain.Preferences {
	prefs = prefs.Normalize()
	if patch.AdhanVolumePercent != nil {
		prefs.AdhanVolumePercent = *patch.AdhanVolumePercent
	}
	if patch.SmartDND != nil {
		prefs.SmartDND = *patch.SmartDND
	}
	if patch.FadeIn != nil {
		prefs.FadeIn = *patch.FadeIn
	}
	if patch.CustomSound != nil {
		prefs.CustomSound = *patch.CustomSound
	}
	if patch.CustomSoundTitle != nil {
		prefs.CustomSoundTitle = *patch.CustomSoundTitle
	}
	return prefs.Normalize()
}
