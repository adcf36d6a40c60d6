package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/samber/lo"

	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
)

// Dataset is the racing data served by the API
type Dataset interface {
	ListRaces(ctx context.Context) ([]models.Race, error)
	RaceExists(ctx context.Context, raceID string) (bool, error)
	ListDrivers(ctx context.Context, raceID string, session models.Session) ([]string, error)
	QueryLaps(ctx context.Context, q models.LapQuery) ([]models.Lap, error)
	QueryTelemetry(ctx context.Context, q models.TelemetryQuery) ([]models.TelemetrySample, error)
	GetSummaries(ctx context.Context, raceID string, session models.Session, drivers []string) ([]models.Summary, error)
	GetStats(ctx context.Context) (models.DatasetStats, error)
}

// Server represents the racing API server
type Server struct {
	db      Dataset
	router  *mux.Router
	log     *log.Logger
	origins []string
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAllowedOrigins restricts CORS to the given origins. By default all
// origins are allowed.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer creates a new API server
func NewServer(database Dataset, opts ...Option) *Server {
	s := &Server{
		db:     database,
		router: mux.NewRouter(),
		log:    log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/races", s.handleListRaces).Methods("GET")
	s.router.HandleFunc("/api/drivers", s.handleListDrivers).Methods("GET")
	s.router.HandleFunc("/api/laps", s.handleLaps).Methods("GET")
	s.router.HandleFunc("/api/telemetry", s.handleTelemetry).Methods("GET")
	s.router.HandleFunc("/api/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		respondError(w, http.StatusNotFound, "not found")
	})

	s.router.Use(loggingMiddleware(s.log))
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}
	if len(s.origins) == 0 {
		opts.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		opts.AllowedOrigins = s.origins
	}
	return cors.New(opts).Handler(s.router)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

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
				log.String("query", r.URL.RawQuery),
				log.Int("status", rec.status),
				log.Duration("took", time.Since(start)))
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// raceParams holds the common query parameters of the race endpoints
type raceParams struct {
	raceID  string
	session models.Session
	drivers []string
}

// parseRaceParams reads race_id, session and drivers. It answers the request
// and returns false when a parameter is invalid or the race is unknown.
func (s *Server) parseRaceParams(w http.ResponseWriter, r *http.Request, mustExist bool) (raceParams, bool) {
	var p raceParams
	q := r.URL.Query()

	p.raceID = strings.TrimSpace(q.Get("race_id"))
	if p.raceID == "" {
		respondError(w, http.StatusBadRequest, "race_id is required")
		return p, false
	}

	session, err := models.ParseSession(q.Get("session"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return p, false
	}
	p.session = session
	p.drivers = splitDrivers(q.Get("drivers"))

	if mustExist {
		ok, err := s.db.RaceExists(r.Context(), p.raceID)
		if err != nil {
			s.internalError(w, err)
			return p, false
		}
		if !ok {
			respondError(w, http.StatusNotFound, "race not found: "+p.raceID)
			return p, false
		}
	}
	return p, true
}

func splitDrivers(s string) []string {
	ids := lo.Map(strings.Split(s, ","), func(id string, _ int) string { return strings.TrimSpace(id) })
	return lo.Uniq(lo.Compact(ids))
}

// driverOrder yields the key order of a per driver response: the requested
// drivers, or all drivers of the session in dataset order.
func (s *Server) driverOrder(ctx context.Context, p raceParams) ([]string, error) {
	if len(p.drivers) > 0 {
		return p.drivers, nil
	}
	return s.db.ListDrivers(ctx, p.raceID, p.session)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("request failed", log.ErrorField(err))
	respondError(w, http.StatusInternalServerError, err.Error())
}

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListRaces(w http.ResponseWriter, r *http.Request) {
	races, err := s.db.ListRaces(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, races)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseRaceParams(w, r, false)
	if !ok {
		return
	}
	ids, err := s.db.ListDrivers(r.Context(), p.raceID, p.session)
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ids)
}

func (s *Server) handleLaps(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseRaceParams(w, r, true)
	if !ok {
		return
	}
	laps, err := s.db.QueryLaps(r.Context(), models.LapQuery{
		RaceID: p.raceID, Session: p.session, Drivers: p.drivers,
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	order, err := s.driverOrder(r.Context(), p)
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groupByDriver(order, laps, func(l models.Lap) string { return string(l.Driver) }))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseRaceParams(w, r, true)
	if !ok {
		return
	}
	q := models.TelemetryQuery{RaceID: p.raceID, Session: p.session, Drivers: p.drivers}
	if v := r.URL.Query().Get("lap_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "lap_number must be a positive integer")
			return
		}
		q.LapNumber = n
	}

	samples, err := s.db.QueryTelemetry(r.Context(), q)
	if err != nil {
		s.internalError(w, err)
		return
	}
	order, err := s.driverOrder(r.Context(), p)
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK,
		groupByDriver(order, samples, func(t models.TelemetrySample) string { return string(t.Driver) }))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseRaceParams(w, r, true)
	if !ok {
		return
	}
	sums, err := s.db.GetSummaries(r.Context(), p.raceID, p.session, p.drivers)
	if err != nil {
		s.internalError(w, err)
		return
	}
	order, err := s.driverOrder(r.Context(), p)
	if err != nil {
		s.internalError(w, err)
		return
	}

	byDriver := lo.KeyBy(sums, func(sum models.Summary) string { return string(sum.Driver) })
	var resp models.SummaryResponse
	for _, id := range order {
		if sum, ok := byDriver[id]; ok {
			resp.Set(id, sum)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// groupByDriver builds a per driver map in the given key order. Drivers
// without records are left out.
func groupByDriver[T any](order []string, records []T, driverOf func(T) string) models.DriverMap[[]T] {
	groups := lo.GroupBy(records, driverOf)
	var m models.DriverMap[[]T]
	for _, id := range order {
		if g, ok := groups[id]; ok {
			m.Set(id, g)
		}
	}
	return m
}
