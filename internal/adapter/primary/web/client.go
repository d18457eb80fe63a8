package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/usecase"
)

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Client talks to a running daemon's HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the daemon listening on addr (host:port or URL).
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{Timeout: 10 * time.Second}}
}

// Schedule creates or replaces a trigger.
func (c *Client) Schedule(ctx context.Context, t domain.Trigger) error {
	return c.do(ctx, http.MethodPost, "/api/triggers", toTriggerView(t), nil)
}

// Cancel removes a trigger by name.
func (c *Client) Cancel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/triggers/"+url.PathEscape(name), nil, nil)
}

// Get returns one stored trigger. A missing name is an *APIError with status 404.
func (c *Client) Get(ctx context.Context, name string) (domain.Trigger, error) {
	var v triggerView
	if err := c.do(ctx, http.MethodGet, "/api/triggers/"+url.PathEscape(name), nil, &v); err != nil {
		return domain.Trigger{}, err
	}
	return v.toDomain()
}

// ListPending returns the future triggers.
func (c *Client) ListPending(ctx context.Context) ([]domain.Trigger, error) {
	var views []triggerView
	if err := c.do(ctx, http.MethodGet, "/api/triggers", nil, &views); err != nil {
		return nil, err
	}
	out := make([]domain.Trigger, 0, len(views))
	for _, v := range views {
		t, err := v.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Fire starts playback immediately.
func (c *Client) Fire(ctx context.Context, name, sound string, kind domain.Kind) (domain.Outcome, error) {
	var resp struct {
		Outcome domain.Outcome `json:"outcome"`
	}
	err := c.do(ctx, http.MethodPost, "/api/fire", fireRequest{Name: name, Sound: sound, Kind: string(kind)}, &resp)
	return resp.Outcome, err
}

// Stop ends the active playback, if any.
func (c *Client) Stop(ctx context.Context) (domain.PlaybackStatus, error) {
	var v statusView
	if err := c.do(ctx, http.MethodPost, "/api/playback/stop", nil, &v); err != nil {
		return domain.PlaybackStatus{}, err
	}
	return v.toDomain(), nil
}

// Status reports the playback state.
func (c *Client) Status(ctx context.Context) (domain.PlaybackStatus, error) {
	var v statusView
	if err := c.do(ctx, http.MethodGet, "/api/playback/status", nil, &v); err != nil {
		return domain.PlaybackStatus{}, err
	}
	return v.toDomain(), nil
}

// Preferences returns the stored preferences.
func (c *Client) Preferences(ctx context.Context) (domain.Preferences, error) {
	var v preferencesView
	if err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &v); err != nil {
		return domain.Preferences{}, err
	}
	return v.toDomain(), nil
}

// UpdatePreferences applies patch and returns the stored result.
func (c *Client) UpdatePreferences(ctx context.Context, patch usecase.PreferencesPatch) (domain.Preferences, error) {
	body := preferencesPayload{
		AdhanVolumePercent: patch.AdhanVolumePercent,
		SmartDND:           patch.SmartDND,
		FadeIn:             patch.FadeIn,
		CustomSound:        patch.CustomSound,
		CustomSoundTitle:   patch.CustomSoundTitle,
	}
	var v preferencesView
	if err := c.do(ctx, http.MethodPut, "/api/preferences", body, &v); err != nil {
		return domain.Preferences{}, err
	}
	return v.toDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ev errorView
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &ev) != nil || ev.Error == "" {
			ev.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: ev.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
