package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
	"adhan-alarm/internal/usecase"
)

// WakeupLister reports the wake-ups currently armed.
type WakeupLister interface {
	Registered(ctx context.Context) ([]domain.Wakeup, error)
}

// Backend groups the primary ports the HTTP API drives.
type Backend struct {
	Scheduler   usecase.SchedulerUseCase
	Playback    usecase.PlaybackUseCase
	Preferences usecase.PreferencesUseCase
	Wakeups     WakeupLister
}

// Server is a primary adapter that exposes the daemon's HTTP API + status page.
type Server struct {
	backend Backend
	server  *http.Server
}

// NewServer creates the HTTP server bound to addr.
func NewServer(b Backend, addr string) *Server {
	srv := &Server{backend: b}
	srv.server = &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Handler returns the routed handler, wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/triggers", s.handleTriggers)
	mux.HandleFunc("/api/triggers/", s.handleTrigger)
	mux.HandleFunc("/api/fire", s.handleFire)
	mux.HandleFunc("/api/playback/status", s.handleStatus)
	mux.HandleFunc("/api/playback/stop", s.handleStop)
	mux.HandleFunc("/api/preferences", s.handlePreferences)
	mux.HandleFunc("/api/wakeups", s.handleWakeups)
	mux.HandleFunc("/", s.handleRoot)
	return loggingMiddleware(mux)
}

// Start blocks and serves HTTP traffic.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(statusPage))
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pending, err := s.backend.Scheduler.ListPending(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		views := make([]triggerView, 0, len(pending))
		for _, t := range pending {
			views = append(views, toTriggerView(t))
		}
		respondJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var req triggerView
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		t, err := req.toDomain()
		if err != nil {
			respondError(w, err)
			return
		}
		if err := s.backend.Scheduler.Schedule(r.Context(), t); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, toTriggerView(t.Normalized()))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/triggers/")
	if name == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		t, err := s.backend.Scheduler.Get(r.Context(), name)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, toTriggerView(t))
	case http.MethodDelete:
		if err := s.backend.Scheduler.Cancel(r.Context(), name); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleFire plays a trigger immediately, bypassing the wake-up registry.
func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req fireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	kind := domain.KindAdhan
	if req.Kind != "" {
		k, err := domain.ParseKind(req.Kind)
		if err != nil {
			respondError(w, err)
			return
		}
		kind = k
	}
	if req.Name == "" {
		req.Name = "manual"
	}

	// Playback outlives the request.
	ctx := context.WithoutCancel(r.Context())
	outcome, err := s.backend.Playback.Activate(ctx, domain.Trigger{
		Name:   req.Name,
		FireAt: time.Now(),
		Sound:  req.Sound,
		Kind:   kind,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"outcome": outcome,
		"status":  toStatusView(s.backend.Playback.Status()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, toStatusView(s.backend.Playback.Status()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.backend.Playback.StopActivePlayback()
	respondJSON(w, http.StatusOK, toStatusView(s.backend.Playback.Status()))
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := s.backend.Preferences.Get(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, toPreferencesView(p))
	case http.MethodPut:
		var req preferencesPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		p, err := s.backend.Preferences.Update(r.Context(), req.toPatch())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, toPreferencesView(p))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWakeups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.backend.Wakeups == nil {
		respondJSON(w, http.StatusOK, []triggerView{})
		return
	}
	armed, err := s.backend.Wakeups.Registered(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]triggerView, 0, len(armed))
	for _, wk := range armed {
		views = append(views, toTriggerView(domain.Trigger(wk)))
	}
	respondJSON(w, http.StatusOK, views)
}

// statusCode maps domain errors onto HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTrigger), errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSoundUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusCode(err), errorView{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Errorf("encode JSON: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

const statusPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Adhan Alarm</title>
    <style>
        body { font-family: sans-serif; max-width: 640px; margin: 50px auto; padding: 20px; }
        .info { background: #f0f0f0; padding: 15px; border-radius: 5px; margin: 20px 0; }
        button { background: #007bff; color: white; border: none; padding: 10px 20px; border-radius: 5px; cursor: pointer; }
        td { padding: 4px 12px 4px 0; }
    </style>
</head>
<body>
    <h1>Adhan Alarm</h1>
    <div class="info" id="status">Loading...</div>
    <button onclick="stop()">Stop</button>
    <h2>Pending</h2>
    <table id="pending"></table>
    <script>
        async function load() {
            const st = await (await fetch('/api/playback/status')).json();
            let text = 'State: ' + st.state;
            if (st.trigger) {
                text += ' (' + st.trigger + ', ' + st.kind + ', gain ' + st.gainPct + '%' + (st.fading ? ', fading' : '') + ')';
            }
            document.getElementById('status').textContent = text;

            const pending = await (await fetch('/api/triggers')).json();
            const table = document.getElementById('pending');
            table.innerHTML = '';
            for (const t of pending) {
                const row = table.insertRow();
                row.insertCell().textContent = t.name;
                row.insertCell().textContent = t.kind;
                row.insertCell().textContent = new Date(t.fireAt).toLocaleString();
                row.insertCell().textContent = t.sound;
            }
        }

        async function stop() {
            await fetch('/api/playback/stop', {method: 'POST'});
            await load();
        }

        load();
        setInterval(load, 3000);
    </script>
</body>
</html>`
