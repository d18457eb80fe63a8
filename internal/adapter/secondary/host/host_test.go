package host

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhan-alarm/internal/domain"
)

func TestPresentAndDismiss(t *testing.T) {
	var shown []string
	h := New(func(title, body string) error {
		shown = append(shown, title+"|"+body)
		return nil
	})

	a := domain.AlertFor(domain.Trigger{Name: "fajr_2", Kind: domain.KindAdhan})
	h.Present(a)

	require.Len(t, shown, 1)
	assert.Equal(t, "Prayer Time|It is time for Fajr", shown[0])

	cur, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "fajr_2", cur.Alert.Name)

	h.Dismiss(domain.Alert{Name: "other"}, domain.ReasonReplaced)
	_, ok = h.Current()
	assert.True(t, ok, "dismissing another alert leaves the current one")

	h.Dismiss(a, domain.ReasonStopped)
	_, ok = h.Current()
	assert.False(t, ok)
}

func TestNotifierFailureIsIgnored(t *testing.T) {
	h := New(func(string, string) error { return errors.New("no display") })
	h.Present(domain.Alert{Name: "wake", Title: "Alarm", Body: "Wake up!"})

	_, ok := h.Current()
	assert.True(t, ok)
}

func TestDesktopNotifier(t *testing.T) {
	assert.NotNil(t, DesktopNotifier("darwin"))
	assert.NotNil(t, DesktopNotifier("linux"))
	assert.Nil(t, DesktopNotifier("windows"))
}
