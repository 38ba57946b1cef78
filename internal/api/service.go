// Package api is the HTTP surface of spec.md §6: routes, CORS, the auth
// middleware, and structured JSON error responses, grounded in the
// teacher's internal/api/service.go (Service{logger,config,db,server},
// setupRoutes/withCORS/withAuth, graceful shutdown on context
// cancellation).
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
	"github.com/vhamcloud/orchestrator/internal/auth"
	"github.com/vhamcloud/orchestrator/internal/database"
	"github.com/vhamcloud/orchestrator/internal/deployment"
	"github.com/vhamcloud/orchestrator/internal/monitoring"
	"github.com/vhamcloud/orchestrator/internal/placement"
	"github.com/vhamcloud/orchestrator/internal/slices"
)

// Config holds the configuration the service needs beyond its
// collaborators, the same split the teacher's api.Config draws between
// connection info and injected dependencies.
type Config struct {
	Addr string
}

// Service wires the Slice Controller, Deployment Controller, and
// Placement Engine onto net/http's method-and-path ServeMux, the same
// shape as the teacher's Service{logger,config,db,server}.
type Service struct {
	logger *slog.Logger
	config *Config
	db     *database.DB
	auth   *auth.Authenticator
	slices  *slices.Controller
	deploy  *deployment.Controller
	engine  *placement.Engine
	monitor *monitoring.Adapter
	server  *http.Server
}

func NewService(cfg *Config, db *database.DB, authn *auth.Authenticator, sliceCtl *slices.Controller, deployCtl *deployment.Controller, engine *placement.Engine, monitor *monitoring.Adapter, logger *slog.Logger) *Service {
	return &Service{
		logger:  logger,
		config:  cfg,
		db:      db,
		auth:    authn,
		slices:  sliceCtl,
		deploy:  deployCtl,
		engine:  engine,
		monitor: monitor,
	}
}

// hostsFromMonitoring is the single place the HTTP layer pulls a live
// host snapshot, shared by GET /hosts and both /placement endpoints.
func (s *Service) hostsFromMonitoring(r *http.Request) []placement.Host {
	return s.monitor.GetHosts(r.Context())
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully with a bounded timeout, matching the teacher's Start.
func (s *Service) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.withCORS(otelhttp.NewHandler(mux, "orchestrator")),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api service listening", "addr", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Service) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.auth.WithAuth(s.handleHealth))

	mux.HandleFunc("POST /login", s.handleLogin)

	mux.HandleFunc("GET /slices", s.auth.WithAuth(s.handleListSlices))
	mux.HandleFunc("GET /slices/{id}", s.auth.WithAuth(s.handleGetSlice))
	mux.HandleFunc("GET /slices/{id}/events", s.auth.WithAuth(s.handleSliceEvents))
	mux.HandleFunc("POST /slices/create", s.auth.WithAuth(s.handleCreateSlice))
	mux.HandleFunc("POST /slices/update/{id}", s.auth.WithAuth(s.handleUpdateSlice))
	mux.HandleFunc("POST /slices/deploy/{id}", s.auth.WithAuth(s.handleDeploySlice))
	mux.HandleFunc("DELETE /slices/delete/{id}", s.auth.WithAuth(s.handleDeleteSlice))

	mux.HandleFunc("GET /flavors", s.auth.WithAuth(s.handleListFlavors))
	mux.HandleFunc("GET /images", s.auth.WithAuth(s.handleListImages))
	mux.HandleFunc("POST /images/upload", s.auth.WithAuth(s.handleUploadImage))

	mux.HandleFunc("POST /placement/slice/{id}", s.auth.WithAuth(s.handlePlacementSlice))
	mux.HandleFunc("POST /placement/custom", s.auth.WithAuth(s.handlePlacementCustom))

	mux.HandleFunc("GET /hosts", s.auth.WithAuth(s.handleHosts))
}

// handleHealth probes the database connection pool, the only external
// dependency worth surfacing in a liveness probe (the monitoring tunnel
// degrades to an empty host list on failure rather than a hard outage,
// per spec.md §4.5, so it is not part of the health contract).
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "connected"
	healthy := true
	if err := s.db.Pool.Ping(ctx); err != nil {
		healthy = false
		dbStatus = "unreachable"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":   boolToStatus(healthy),
		"database": dbStatus,
	})
}

func boolToStatus(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}

// withCORS mirrors the teacher's withCORS: permissive headers, early
// return on preflight.
func (s *Service) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apierrors.NewValidation("malformed request body", nil)
	}
	return nil
}
