package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketscanner/internal/scan"
)

// ServerConfig mirrors the teacher's ServerConfig: local-only defaults,
// HTTP_PORT env override, request/idle timeouts.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig matches spec §4.9/§6 defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the control API surface (C9): scan, signals query, continuous
// control/query, training-data, position sizing, metrics, health, and the
// signal-stream websocket. Grounded on the teacher's
// internal/interfaces/http/server.go middleware chain and route table.
type Server struct {
	router  *mux.Router
	httpSrv *http.Server
	config  ServerConfig
	deps    Deps

	// lastScan carries the module-level "last_scan_results" global from
	// the source as one explicit, mutex-guarded value on Server instead,
	// per spec §9's "Global mutable state" design note. Updated by every
	// completed POST /api/scanner/scan call (single or parallel).
	scanMu     sync.RWMutex
	lastScan   []scan.Signal
	lastScanAt time.Time
}

// recordScan stores the most recent synchronous-scan result set for
// handleSignalsQuery, independent of whether the continuous pipeline is
// running.
func (s *Server) recordScan(signals []scan.Signal) {
	s.scanMu.Lock()
	s.lastScan = signals
	s.lastScanAt = time.Now()
	s.scanMu.Unlock()
}

// latestScan returns the freshest of the last synchronous scan (handleScan)
// and the continuous pipeline's last full scan (L4), per spec §6's
// "Signals query ... returns the last scan's rows".
func (s *Server) latestScan() ([]scan.Signal, bool) {
	s.scanMu.RLock()
	syncSignals, syncAt := s.lastScan, s.lastScanAt
	s.scanMu.RUnlock()

	pipelineRes, pipelineOK := s.deps.Pipeline.LastFullScan()
	pipelineAt := s.deps.Pipeline.LastFullScanAt()

	haveSync := !syncAt.IsZero()
	switch {
	case haveSync && (!pipelineOK || syncAt.After(pipelineAt)):
		return syncSignals, true
	case pipelineOK:
		return pipelineRes.Signals, true
	default:
		return nil, false
	}
}

// NewServer builds a Server over deps, wiring every route from spec §6.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, config: cfg, deps: deps}
	s.setupMiddleware()
	s.setupRoutes()
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.Handle("/metrics", Handler(s.deps.Registry)).Methods(http.MethodGet)

	api.HandleFunc("/api/scanner/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/api/scanner/signals", s.handleSignalsQuery).Methods(http.MethodGet)

	api.HandleFunc("/api/scanner/continuous/start", s.handleContinuousStart).Methods(http.MethodPost)
	api.HandleFunc("/api/scanner/continuous/stop", s.handleContinuousStop).Methods(http.MethodPost)
	api.HandleFunc("/api/scanner/continuous/status", s.handleContinuousStatus).Methods(http.MethodGet)
	api.HandleFunc("/api/scanner/continuous/signals", s.handleContinuousSignals).Methods(http.MethodGet)
	api.HandleFunc("/api/scanner/continuous/confluence/{symbol}", s.handleConfluence).Methods(http.MethodGet)
	api.HandleFunc("/api/scanner/continuous/market-state", s.handleMarketState).Methods(http.MethodGet)

	api.HandleFunc("/api/scanner/training-data/{symbol}", s.handleTrainingData).Methods(http.MethodGet)
	api.HandleFunc("/api/position/calculate", s.handlePositionCalculate).Methods(http.MethodPost)

	api.HandleFunc("/api/scanner/stream", s.handleStream).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		log.Info().
			Str("request_id", fmt.Sprint(r.Context().Value(requestIDKey{}))).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves the API, blocking until the server stops or errors.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("starting control API server")
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Addr returns the server's bind address.
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseFloatQuery(r *http.Request, key string, def float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
