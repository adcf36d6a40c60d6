// Package web serves the dashboard to browsers. Every browser session owns
// its own dashboard controller.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"

	"race-telemetry-dashboard/internal/dashboard"
	"race-telemetry-dashboard/internal/log"
)

const (
	SessionCookie     = "race_dash_session"
	DefaultSessionTTL = time.Hour
	defaultInitWait   = 10 * time.Second
)

// ControllerFactory creates the controller of a new browser session.
type ControllerFactory func() *dashboard.Controller

type session struct {
	id   string
	ctrl *dashboard.Controller

	mu        sync.Mutex
	attempted bool
	ready     bool
}

// Server represents the dashboard web server
type Server struct {
	newController ControllerFactory
	sessions      *cache.Cache
	router        *mux.Router
	log           *log.Logger
	upgrader      websocket.Upgrader
	ttl           time.Duration
	initTimeout   time.Duration
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithSessionTTL sets the idle time after which a browser session is dropped.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithInitTimeout bounds the initial race list load of a new session.
func WithInitTimeout(d time.Duration) Option {
	return func(s *Server) { s.initTimeout = d }
}

// NewServer creates a new dashboard server
func NewServer(factory ControllerFactory, opts ...Option) *Server {
	s := &Server{
		newController: factory,
		router:        mux.NewRouter(),
		log:           log.Default().Named("web"),
		ttl:           DefaultSessionTTL,
		initTimeout:   defaultInitWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	cleanup := s.ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	s.sessions = cache.New(s.ttl, cleanup)
	s.sessions.OnEvicted(func(id string, v any) {
		s.log.Debug("session ended", log.String("session", id))
		v.(*session).ctrl.Close()
	})
	s.setupRoutes()
	return s
}

// setupRoutes configures all dashboard routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handlePage).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	d := s.router.PathPrefix("/dashboard").Subrouter()
	d.HandleFunc("/race", s.handleRace).Methods("POST")
	d.HandleFunc("/session", s.handleSession).Methods("POST")
	d.HandleFunc("/drivers", s.handleDrivers).Methods("POST")
	d.HandleFunc("/lap", s.handleLap).Methods("POST")
	d.HandleFunc("/load", s.handleLoad).Methods("POST")
	d.HandleFunc("/metric", s.handleMetric).Methods("POST")
	d.HandleFunc("/dismiss", s.handleDismiss).Methods("POST")

	s.router.HandleFunc("/api/v1/view", s.handleView).Methods("GET")
	s.router.HandleFunc("/api/v1/charts/{slot}", s.handleChartConfig).Methods("GET")
	s.router.HandleFunc("/charts/{slot}.png", s.handleChartPNG).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebsocket).Methods("GET")

	s.router.Use(loggingMiddleware(s.log))
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// SessionCount returns the number of live browser sessions.
func (s *Server) SessionCount() int {
	return s.sessions.ItemCount()
}

// Close ends all browser sessions.
func (s *Server) Close() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

// Serve runs the server on addr until ctx is done, then shuts it down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// websocket streams stay open; writes set their own deadlines
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", log.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Close()
	err := srv.Shutdown(shutdownCtx)
	s.log.Info("dashboard shut down")
	return err
}

// getSession returns the browser session of the request, creating one if needed.
// Every access renews the session expiry.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if v, ok := s.sessions.Get(c.Value); ok {
			sess := v.(*session)
			s.sessions.Set(sess.id, sess, cache.DefaultExpiration)
			return sess
		}
	}

	sess := &session{id: uuid.NewString(), ctrl: s.newController()}
	s.sessions.Set(sess.id, sess, cache.DefaultExpiration)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.log.Debug("session started", log.String("session", sess.id))
	return sess
}

// controller returns the controller of the request's session. The race list
// is loaded on first use; retry repeats a failed load, as a page reload does.
func (s *Server) controller(w http.ResponseWriter, r *http.Request, retry bool) *dashboard.Controller {
	sess := s.getSession(w, r)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ready || (sess.attempted && !retry) {
		return sess.ctrl
	}
	sess.attempted = true

	ctx, cancel := context.WithTimeout(r.Context(), s.initTimeout)
	defer cancel()
	if err := sess.ctrl.Init(ctx); err != nil {
		s.log.Warn("dashboard init failed", log.String("session", sess.id), log.ErrorField(err))
		return sess.ctrl
	}
	sess.ready = true
	return sess.ctrl
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware
func loggingMiddleware(logger *log.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.Int("status", rec.status),
				log.Duration("took", time.Since(start)))
		})
	}
}

// Response helpers
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// respondAction answers a form action: the current view for JSON clients,
// otherwise a redirect back to the page.
func respondAction(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, ctrl.View())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// respondBadRequest answers invalid form input.
func respondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
