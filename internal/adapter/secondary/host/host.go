package host

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

// Notifier shows a desktop notification.
type Notifier func(title, body string) error

// DesktopNotifier returns the notifier for goos, or nil when none is known.
func DesktopNotifier(goos string) Notifier {
	switch goos {
	case "darwin":
		return func(title, body string) error {
			script := fmt.Sprintf("display notification %q with title %q sound name \"\"", body, title)
			return run("osascript", "-e", script)
		}
	case "linux":
		return func(title, body string) error {
			return run("notify-send", "--urgency=critical", "--app-name=adhan-alarm", title, body)
		}
	default:
		return nil
	}
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w, output: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Presented is an alert the host is currently showing.
type Presented struct {
	Alert domain.Alert
	Since time.Time
}

// SessionHost implements domain.SessionHost by logging alerts and, when a
// notifier is set, raising a desktop notification.
// This is a secondary adapter.
type SessionHost struct {
	notify Notifier

	mu      sync.Mutex
	current *Presented
}

var _ domain.SessionHost = (*SessionHost)(nil)

// New creates a host. notify may be nil.
func New(notify Notifier) *SessionHost {
	return &SessionHost{notify: notify}
}

// NewForOS creates a host with the desktop notifier for the running OS when enabled.
func NewForOS(notifications bool) *SessionHost {
	if !notifications {
		return New(nil)
	}
	return New(DesktopNotifier(runtime.GOOS))
}

func (h *SessionHost) Present(a domain.Alert) {
	h.mu.Lock()
	h.current = &Presented{Alert: a, Since: time.Now()}
	h.mu.Unlock()

	logging.Warnf("%s: %s", a.Title, a.Body)
	if h.notify == nil {
		return
	}
	if err := h.notify(a.Title, a.Body); err != nil {
		logging.Debugf("host: notification for %s failed: %v", a.Name, err)
	}
}

func (h *SessionHost) Dismiss(a domain.Alert, reason domain.StopReason) {
	h.mu.Lock()
	if h.current != nil && h.current.Alert.Name == a.Name {
		h.current = nil
	}
	h.mu.Unlock()
	logging.Infof("host: %s dismissed (%s)", a.Name, reason)
}

// Current returns the alert being shown, if any.
func (h *SessionHost) Current() (Presented, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return Presented{}, false
	}
	return *h.current, true
}
