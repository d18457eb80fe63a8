package web

import (
	"time"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/usecase"
)

type triggerView struct {
	Name   string    `json:"name"`
	FireAt time.Time `json:"fireAt"`
	Sound  string    `json:"sound"`
	Kind   string    `json:"kind"`
}

func toTriggerView(t domain.Trigger) triggerView {
	return triggerView{Name: t.Name, FireAt: t.FireAt, Sound: t.Sound, Kind: string(t.Kind)}
}

func (v triggerView) toDomain() (domain.Trigger, error) {
	kind := domain.KindAdhan
	if v.Kind != "" {
		k, err := domain.ParseKind(v.Kind)
		if err != nil {
			return domain.Trigger{}, err
		}
		kind = k
	}
	return domain.Trigger{Name: v.Name, FireAt: v.FireAt, Sound: v.Sound, Kind: kind}, nil
}

type fireRequest struct {
	Name  string `json:"name"`
	Sound string `json:"sound"`
	Kind  string `json:"kind"`
}

type statusView struct {
	State     string     `json:"state"`
	SessionID string     `json:"sessionId,omitempty"`
	Trigger   string     `json:"trigger,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	GainPct   int        `json:"gainPct"`
	Fading    bool       `json:"fading"`
}

func toStatusView(st domain.PlaybackStatus) statusView {
	v := statusView{
		State:     string(st.State),
		SessionID: st.SessionID,
		Trigger:   st.Trigger,
		Kind:      string(st.Kind),
		GainPct:   st.GainPct,
		Fading:    st.Fading,
	}
	if !st.Since.IsZero() {
		since := st.Since
		v.Since = &since
	}
	return v
}

func (v statusView) toDomain() domain.PlaybackStatus {
	st := domain.PlaybackStatus{
		State:     domain.PlaybackState(v.State),
		SessionID: v.SessionID,
		Trigger:   v.Trigger,
		Kind:      domain.Kind(v.Kind),
		GainPct:   v.GainPct,
		Fading:    v.Fading,
	}
	if v.Since != nil {
		st.Since = *v.Since
	}
	return st
}

type preferencesView struct {
	AdhanVolumePercent int    `json:"adhanVolumePercent"`
	SmartDND           bool   `json:"smartDnd"`
	FadeIn             bool   `json:"fadeIn"`
	CustomSound        string `json:"customSound,omitempty"`
	CustomSoundTitle   string `json:"customSoundTitle,omitempty"`
}

func toPreferencesView(p domain.Preferences) preferencesView {
	return preferencesView{
		AdhanVolumePercent: p.AdhanVolumePercent,
		SmartDND:           p.SmartDND,
		FadeIn:             p.FadeIn,
		CustomSound:        p.CustomSound,
		CustomSoundTitle:   p.CustomSoundTitle,
	}
}

func (v preferencesView) toDomain() domain.Preferences {
	return domain.Preferences{
		AdhanVolumePercent: v.AdhanVolumePercent,
		SmartDND:           v.SmartDND,
		FadeIn:             v.FadeIn,
		CustomSound:        v.CustomSound,
		CustomSoundTitle:   v.CustomSoundTitle,
	}
}

type preferencesPayload struct {
	AdhanVolumePercent *int    `json:"adhanVolumePercent"`
	SmartDND           *bool   `json:"smartDnd"`
	FadeIn             *bool   `json:"fadeIn"`
	CustomSound        *string `json:"customSound"`
	CustomSoundTitle   *string `json:"customSoundTitle"`
}

func (p preferencesPayload) toPatch() usecase.PreferencesPatch {
	return usecase.PreferencesPatch{
		AdhanVolumePercent: p.AdhanVolumePercent,
		SmartDND:           p.SmartDND,
		FadeIn:             p.FadeIn,
		CustomSound:        p.CustomSound,
		CustomSoundTitle:   p.CustomSoundTitle,
	}
}

type errorView struct {
	Error string `json:"error"`
}
