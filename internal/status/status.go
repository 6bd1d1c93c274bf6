// Package status serves health, unit snapshots and prometheus metrics over
// HTTP. The server runs as a deferred-result unit so it can be sustained
// like any other work.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/omnisustain/pkg/deferred"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/sustainer"
	"github.com/bft-labs/omnisustain/pkg/work"
)

const shutdownTimeout = 5 * time.Second

// Source is a sustainer whose units are listed.
type Source interface {
	Name() string
	Snapshot() []sustainer.Entry
}

// Server is the status HTTP server.
type Server struct {
	addr     string
	logger   log.Logger
	gatherer prometheus.Gatherer
	router   *mux.Router

	mu      sync.RWMutex
	sources map[string]Source
	bound   net.Addr
	ready   chan struct{}
	once    sync.Once
}

// New creates a server listening on addr. A nil gatherer serves the default
// prometheus registry.
func New(addr string, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		addr:     addr,
		logger:   log.OrNoop(logger),
		gatherer: gatherer,
		sources:  make(map[string]Source),
		ready:    make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/units", s.handleSources).Methods(http.MethodGet)
	r.HandleFunc("/units/{sustainer}", s.handleUnits).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// SetSources replaces the listed sustainers.
func (s *Server) SetSources(sources ...Source) {
	m := make(map[string]Source, len(sources))
	for _, src := range sources {
		if src != nil {
			m[src.Name()] = src
		}
	}
	s.mu.Lock()
	s.sources = m
	s.mu.Unlock()
}

// Addr returns the bound address once the server is listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bound
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Operation returns the server as a deferred-result operation. The deferred
// resolves when the server shuts down and fails if it cannot listen;
// canceling it shuts the server down.
func (s *Server) Operation(ctx context.Context) work.Operation {
	return deferred.Operation(func() *deferred.Deferred {
		return deferred.Async(ctx, s.Serve)
	})
}

// Serve listens and serves until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bound = ln.Addr()
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("status server shutdown", log.Err(err))
		}
	}()

	s.logger.Info("status server listening", log.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type unitJSON struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	State    string    `json:"state"`
	Admitted time.Time `json:"admitted"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sources := make(map[string]Source, len(s.sources))
	for name, src := range s.sources {
		sources[name] = src
	}
	s.mu.RUnlock()

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	type sourceJSON struct {
		Name  string `json:"name"`
		Units int    `json:"units"`
	}
	out := make([]sourceJSON, len(names))
	for i, n := range names {
		out[i] = sourceJSON{Name: n, Units: len(sources[n].Snapshot())}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sustainers": out})
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["sustainer"]
	s.mu.RLock()
	src, ok := s.sources[name]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown sustainer " + name})
		return
	}

	entries := src.Snapshot()
	out := make([]unitJSON, len(entries))
	for i, e := range entries {
		out[i] = unitJSON{
			ID:       e.ID.String(),
			Name:     e.Name,
			Type:     e.Type.String(),
			State:    e.State.String(),
			Admitted: e.Admitted,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sustainer": name, "units": out})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
