// Command orchestrator is the single binary SPEC_FULL.md §2 collapses
// the four cooperating components into: it wires config, logging, the
// database, the Monitoring Adapter's SSH tunnel, the Placement Engine,
// the Remote Executor, the Slice and Deployment Controllers, and the
// HTTP API service, then blocks until SIGINT/SIGTERM, mirroring the
// teacher's cmd/api/main.go load-connect-wire-serve-shutdown ordering.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/vhamcloud/orchestrator/internal/api"
	"github.com/vhamcloud/orchestrator/internal/auth"
	"github.com/vhamcloud/orchestrator/internal/config"
	"github.com/vhamcloud/orchestrator/internal/database"
	"github.com/vhamcloud/orchestrator/internal/deployment"
	"github.com/vhamcloud/orchestrator/internal/executor"
	"github.com/vhamcloud/orchestrator/internal/monitoring"
	"github.com/vhamcloud/orchestrator/internal/placement"
	"github.com/vhamcloud/orchestrator/internal/slices"
	"github.com/vhamcloud/orchestrator/internal/telemetry"
	"github.com/vhamcloud/orchestrator/internal/zlog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zlog.New(zlog.Config{Level: cfg.LogLevel, Service: cfg.ServiceName})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	shutdownTracer, err := telemetry.InitTracer(ctx)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.ApplySchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	tunnel, err := startMonitoringTunnel(cfg, logger)
	if err != nil {
		logger.Error("failed to establish monitoring tunnel", "error", err)
		os.Exit(1)
	}
	if tunnel != nil {
		defer tunnel.Close()
	}

	monitorBaseURL := "http://" + cfg.PrometheusHost
	if tunnel != nil {
		monitorBaseURL = "http://" + tunnel.LocalAddr()
	}
	monitor := monitoring.NewAdapter(monitorBaseURL, cfg.PowerIdleWatts, cfg.PowerMaxWatts)

	engine := placement.NewEngine(rand.New(rand.NewSource(time.Now().UnixNano())))

	exec, err := executor.New(cfg.SSHUser, cfg.GatewayHost, cfg.SSHPrivateKeyPath)
	if err != nil {
		logger.Error("failed to initialize remote executor", "error", err)
		os.Exit(1)
	}

	workerLookup := func(workerID int) (int, bool) {
		w, ok := cfg.Workers[workerID]
		if !ok {
			return 0, false
		}
		return w.SSHPort, true
	}

	sliceCtl := slices.New(db, logger, exec, workerLookup)
	deployCtl := deployment.New(db, logger, engine, monitor, exec, cfg.Workers, cfg.DefaultImagePath)
	authn := auth.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)

	svc := api.NewService(&api.Config{Addr: cfg.HTTPAddr}, db, authn, sliceCtl, deployCtl, engine, monitor, logger)

	logger.Info("starting orchestrator", "addr", cfg.HTTPAddr, "workers", len(cfg.Workers))
	if err := svc.Start(ctx); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}

	logger.Info("orchestrator stopped")
}

// startMonitoringTunnel establishes the persistent SSH tunnel to the
// worker fleet's Prometheus endpoint at process start, per spec.md §5:
// "process-wide state, established at startup and torn down at
// shutdown; re-establishment on failure is out of scope." A blank
// MonitoringTunnelHost disables the tunnel (e.g. local development
// against a directly reachable Prometheus), in which case the adapter
// talks to cfg.PrometheusHost directly.
func startMonitoringTunnel(cfg *config.Config, logger *slog.Logger) (*monitoring.Tunnel, error) {
	if cfg.MonitoringTunnelHost == "" {
		logger.Warn("monitoring tunnel disabled, querying prometheus host directly", "host", cfg.PrometheusHost)
		return nil, nil
	}

	signer, err := loadMonitoringKey(cfg)
	if err != nil {
		return nil, err
	}

	sshAddr := fmt.Sprintf("%s:%d", cfg.MonitoringTunnelHost, cfg.MonitoringTunnelPort)
	clientConfig := &ssh.ClientConfig{
		User:            cfg.MonitoringSSHUser,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	// Prometheus listens on the monitoring host itself; reached from the
	// SSH server's own loopback once the tunnel's connection lands there.
	remoteAddr := fmt.Sprintf("127.0.0.1:%d", cfg.MonitoringRemotePort)
	return monitoring.StartTunnel(sshAddr, clientConfig, cfg.MonitoringLocalPort, remoteAddr, logger)
}

func loadMonitoringKey(cfg *config.Config) (ssh.Signer, error) {
	keyBytes, err := os.ReadFile(cfg.SSHPrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(keyBytes)
}
