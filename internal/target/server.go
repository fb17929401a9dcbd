package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"echoburst/internal/runner"
)

// Faults makes the server misbehave on purpose so a run has something to
// catch. Rates are probabilities in [0, 1].
type Faults struct {
	ErrorRate   float64       // reply 500
	CorruptRate float64       // echo a different email
	MaxJitter   time.Duration // random extra latency
}

type ServerConfig struct {
	Port        int
	PostgresDSN string
	MySQLDSN    string
	RedisAddr   string
	Faults      Faults
}

// Server serves the add-person API for every variant.
type Server struct {
	stores  map[runner.Target]PersonStore
	faults  Faults
	metrics *Metrics
	log     *zap.Logger
}

// NewServer uses stores per variant; variants without a store share an
// in-memory one.
func NewServer(stores map[runner.Target]PersonStore, faults Faults, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	mem := NewMemoryStore()
	all := make(map[runner.Target]PersonStore, len(runner.Targets))
	for _, t := range runner.Targets {
		if s, ok := stores[t]; ok && s != nil {
			all[t] = s
		} else {
			all[t] = mem
		}
	}
	return &Server{
		stores:  all,
		faults:  faults,
		metrics: NewMetrics(),
		log:     log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/api/Person/{variant}/add-person", s.addPerson)

	return r
}

func (s *Server) addPerson(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	variant := chi.URLParam(r, "variant")
	label := "unknown"
	status := http.StatusOK
	defer func() {
		s.metrics.requests.WithLabelValues(label, strconv.Itoa(status)).Inc()
		s.metrics.latency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	t, err := runner.ParseTarget(variant)
	if err != nil {
		status = http.StatusNotFound
		writeError(w, status, err)
		return
	}
	label = string(t)

	var p runner.Record
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		status = http.StatusBadRequest
		writeError(w, status, fmt.Errorf("invalid person: %w", err))
		return
	}

	if s.faults.MaxJitter > 0 {
		time.Sleep(rand.N(s.faults.MaxJitter))
	}
	if chance(s.faults.ErrorRate) {
		status = http.StatusInternalServerError
		writeError(w, status, errors.New("injected failure"))
		return
	}

	stored, err := s.stores[t].AddPerson(r.Context(), p)
	if err != nil {
		status = http.StatusInternalServerError
		if errors.Is(err, ErrInvalidPerson) {
			status = http.StatusBadRequest
		}
		s.log.Warn("add person failed",
			zap.String("variant", variant),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, err)
		return
	}

	if chance(s.faults.CorruptRate) {
		stored.Email = runner.NewRecord().Email
	}
	writeJSON(w, status, map[string]runner.Record{"person": stored})
}

func chance(rate float64) bool {
	return rate > 0 && rand.Float64() < rate
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// OpenStores connects every backend configured in cfg. Already opened stores
// are closed if a later one fails.
func OpenStores(ctx context.Context, cfg ServerConfig) (map[runner.Target]PersonStore, error) {
	stores := make(map[runner.Target]PersonStore)
	fail := func(err error) (map[runner.Target]PersonStore, error) {
		for _, s := range stores {
			s.Close()
		}
		return nil, err
	}

	if cfg.PostgresDSN != "" {
		s, err := OpenSQL(ctx, Postgres, cfg.PostgresDSN)
		if err != nil {
			return fail(err)
		}
		stores[runner.TargetPgSql] = s
	}
	if cfg.MySQLDSN != "" {
		s, err := OpenSQL(ctx, MySQL, cfg.MySQLDSN)
		if err != nil {
			return fail(err)
		}
		stores[runner.TargetMySql] = s
	}
	if cfg.RedisAddr != "" {
		s, err := OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fail(err)
		}
		stores[runner.TargetRedis] = s
	}
	return stores, nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, cfg ServerConfig, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range stores {
			s.Close()
		}
	}()

	srv := NewServer(stores, cfg.Faults, log)
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, t := range runner.Targets {
		backend := "memory"
		if _, ok := stores[t]; ok {
			backend = string(t)
		}
		log.Info("serving variant", zap.String("path", t.Path()), zap.String("backend", backend))
	}
	log.Info("target server running", zap.String("addr", "http://localhost"+addr))

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
