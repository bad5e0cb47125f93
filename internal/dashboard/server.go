// Package dashboard serves the web UI: a polling-refresh page backed by
// a small JSON API, with websocket push for browsers that keep the
// page open.
//
// The server is a passive renderer. It never queries the store; the
// scheduler hands it finished snapshots and the handlers serve the most
// recent one from memory.
package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/weatherdeck/weatherdeck/internal/config"
	"github.com/weatherdeck/weatherdeck/internal/observability"
	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/scheduler"
)

//go:embed index.html
var indexHTML []byte

// Params configures a Server.
type Params struct {
	// Addr is the listen address, default ":8794".
	Addr string
	// Settings is the runtime-adjustable options store. Required.
	Settings *config.Settings
	// Scheduler is the refresh loop the handlers observe and poke.
	// Required.
	Scheduler *scheduler.Scheduler
	// Engine and Path describe the reading store for /healthz.
	Engine string
	Path   string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics may be nil.
	Metrics *observability.Metrics
}

// Server is the dashboard HTTP server. It implements render.Renderer:
// each refresh cycle stores its snapshot here and the hub pushes it to
// connected browsers.
type Server struct {
	addr      string
	settings  *config.Settings
	scheduler *scheduler.Scheduler
	engine    string
	path      string
	log       *slog.Logger
	metrics   *observability.Metrics
	hub       *Hub

	mu   sync.RWMutex
	last render.Snapshot
	have bool
}

var _ render.Renderer = (*Server)(nil)

// New creates a dashboard server.
func New(p Params) (*Server, error) {
	if p.Settings == nil {
		return nil, errors.New("dashboard: Settings is required")
	}
	if p.Scheduler == nil {
		return nil, errors.New("dashboard: Scheduler is required")
	}
	if p.Addr == "" {
		p.Addr = ":8794"
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Server{
		addr:      p.Addr,
		settings:  p.Settings,
		scheduler: p.Scheduler,
		engine:    p.Engine,
		path:      p.Path,
		log:       p.Logger,
		metrics:   p.Metrics,
		hub:       NewHub(p.Logger, p.Metrics),
	}, nil
}

// Render stores the snapshot and pushes it to websocket clients. It
// never fails: a broken browser connection is the hub's problem, not
// the refresh loop's.
func (s *Server) Render(_ context.Context, snap render.Snapshot) error {
	s.mu.Lock()
	s.last = snap
	s.have = true
	s.mu.Unlock()

	if err := s.hub.Broadcast(snap); err != nil {
		s.log.Warn("snapshot broadcast failed", "cycle", snap.Cycle, "error", err)
	}
	return nil
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/", s.instrument("index", s.handleIndex)).Methods(http.MethodGet)
	r.Handle("/api/snapshot", s.instrument("snapshot", s.handleSnapshot)).Methods(http.MethodGet)
	r.Handle("/api/settings", s.instrument("settings", s.handleGetSettings)).Methods(http.MethodGet)
	r.Handle("/api/settings", s.instrument("settings", s.handlePutSettings)).Methods(http.MethodPut)
	r.Handle("/api/refresh", s.instrument("refresh", s.handleRefresh)).Methods(http.MethodPost)
	// The websocket upgrade hijacks the connection and needs the raw
	// ResponseWriter, so it skips the metrics middleware.
	r.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.Handle("/healthz", s.instrument("healthz", s.handleHealthz)).Methods(http.MethodGet)
	return r
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return s.metrics.WrapHandler(route, h)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
// In-flight requests get five seconds to finish; websocket clients are
// closed by the hub.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
			return
		}
		errC <- nil
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("dashboard shutdown incomplete", "error", err)
	}
	stopHub()
	<-errC
	s.log.Info("dashboard stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	snap, have := s.last, s.have
	s.mu.RUnlock()

	if !have {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(s.log, w, http.StatusOK, snap)
}

// settingsPayload is the settings API wire form, mirroring the config
// file field names.
type settingsPayload struct {
	LookbackHours          int  `json:"lookback_hours"`
	RowLimit               int  `json:"row_limit"`
	RefreshIntervalSeconds int  `json:"refresh_interval_seconds"`
	AutoRefresh            bool `json:"auto_refresh"`
}

func payloadFromOptions(o scheduler.Options) settingsPayload {
	return settingsPayload{
		LookbackHours:          o.LookbackHours,
		RowLimit:               o.Limit,
		RefreshIntervalSeconds: int(o.Interval / time.Second),
		AutoRefresh:            o.AutoRefresh,
	}
}

func (p settingsPayload) options() scheduler.Options {
	return scheduler.Options{
		LookbackHours: p.LookbackHours,
		Limit:         p.RowLimit,
		Interval:      time.Duration(p.RefreshIntervalSeconds) * time.Second,
		AutoRefresh:   p.AutoRefresh,
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(s.log, w, http.StatusOK, payloadFromOptions(s.settings.Options()))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		respondError(s.log, w, http.StatusBadRequest, "malformed settings: "+err.Error())
		return
	}

	if err := s.settings.Update(p.options()); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			respondError(s.log, w, http.StatusBadRequest, verr.Error())
			return
		}
		respondError(s.log, w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("settings updated",
		"lookback_hours", p.LookbackHours,
		"row_limit", p.RowLimit,
		"refresh_interval_seconds", p.RefreshIntervalSeconds,
		"auto_refresh", p.AutoRefresh,
	)
	respondJSON(s.log, w, http.StatusOK, payloadFromOptions(s.settings.Options()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	accepted := s.scheduler.Refresh()
	respondJSON(s.log, w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(s.log, w, http.StatusOK, map[string]any{
		"status":  "ok",
		"state":   s.scheduler.State().String(),
		"cycles":  s.scheduler.Cycles(),
		"engine":  s.engine,
		"path":    s.path,
		"clients": s.hub.ClientCount(),
	})
}

func respondJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encoding response failed", "error", err)
	}
}

func respondError(log *slog.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(log, w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
