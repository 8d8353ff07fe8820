// Package httpapi is the HTTP surface for producers and operators: event
// ingest and history, channel test, delivery audit, health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradealert/internal/notify"
	"tradealert/internal/storage"
	"tradealert/pkg/logx"
)

const (
	defaultLimit   = 20
	maxBodyBytes   = 64 << 10
	maxQueryLimit  = notify.DefaultHistoryCapacity * 10
	defaultTimeout = 10 * time.Second
)

// Events is the bus surface the API uses.
type Events interface {
	Publish(d notify.Draft) (notify.Event, error)
	Snapshot() []notify.Event
	Clear()
}

// ChannelTester runs a live connection check.
type ChannelTester interface {
	TestConnection(ctx context.Context) bool
}

// DeliveryLister lists the audit trail; nil when storage is disabled.
type DeliveryLister interface {
	RecentDeliveries(ctx context.Context, limit int) ([]storage.DeliveryRecord, error)
}

type Deps struct {
	Events     Events
	Channel    ChannelTester
	Deliveries DeliveryLister
	Gatherer   prometheus.Gatherer // nil: /metrics is not mounted
	Log        logx.Logger

	// Profiling mounts net/http/pprof under /debug/pprof/.
	Profiling bool
	// ProfilingToken, when set, is required as a bearer token or ?token= on /debug.
	ProfilingToken string
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	h := &handlers{d: d}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	if d.Profiling {
		r.With(requireToken(d.ProfilingToken)).Mount("/debug", middleware.Profiler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", h.publish)
		r.Get("/events", h.list)
		r.Delete("/events", h.clear)
		r.Post("/channel/test", h.testChannel)
		r.Get("/deliveries", h.deliveries)
	})
	return r
}

type handlers struct {
	d Deps
}

func (h *handlers) publish(w http.ResponseWriter, r *http.Request) {
	var d notify.Draft
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	ev, err := h.d.Events.Publish(d)
	if err != nil {
		if errors.Is(err, notify.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	snap := h.d.Events.Snapshot()
	if len(snap) > limit {
		snap = snap[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": snap, "count": len(snap)})
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	h.d.Events.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) testChannel(w http.ResponseWriter, r *http.Request) {
	if h.d.Channel == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": false})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*defaultTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": h.d.Channel.TestConnection(ctx)})
}

func (h *handlers) deliveries(w http.ResponseWriter, r *http.Request) {
	if h.d.Deliveries == nil {
		writeError(w, http.StatusNotFound, storage.ErrDisabled.Error())
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	recs, err := h.d.Deliveries.RecentDeliveries(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []storage.DeliveryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": recs, "count": len(recs)})
}

func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.d.Log.Debug("http request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", ww.Status()),
			logx.Duration("took", time.Since(start)),
		)
	})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, maxQueryLimit), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Options are the server timeouts; zero values take defaults.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server runs the router until its context ends, then shuts down gracefully.
type Server struct {
	srv      *http.Server
	shutdown time.Duration
	log      logx.Logger
}

func NewServer(opts Options, handler http.Handler, log logx.Logger) *Server {
	or := func(d, def time.Duration) time.Duration {
		if d <= 0 {
			return def
		}
		return d
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       or(opts.ReadTimeout, 15*time.Second),
			WriteTimeout:      or(opts.WriteTimeout, 30*time.Second),
			IdleTimeout:       or(opts.IdleTimeout, 2*time.Minute),
		},
		shutdown: or(opts.ShutdownTimeout, 5*time.Second),
		log:      log,
	}
}

// Listen binds the address so bind errors surface before Serve runs.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.srv.Addr)
}

// Serve blocks until ctx is done or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http api shutdown", logx.Err(err))
		return err
	}
	s.log.Info("http api stopped")
	return nil
}

func requireToken(token string) func(http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		if tok == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.URL.Query().Get("token")
			if got == "" {
				if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
					got = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
				}
			}
			if got != tok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
