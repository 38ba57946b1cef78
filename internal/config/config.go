// Package config loads the orchestrator's startup configuration from the
// environment. Plain (unprefixed) variables are read with a default
// fallback; only the worker table uses per-worker prefixes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// BaseConfig mirrors the teacher's embed used by every per-service config
// struct.
type BaseConfig struct {
	ServiceName string
	LogLevel    string
	Environment string
}

// Worker is one entry of the worker IP/port table spec.md §6 requires:
// worker_id is canonical (spec.md §9), IP and SSH port are derived from it,
// never parsed back out of a dict key or an IP string.
type Worker struct {
	ID      int
	Host    string `env:"HOST,required"`
	SSHPort int    `env:"SSH_PORT" envDefault:"22"`
}

// Config is the single binary's full startup configuration.
type Config struct {
	BaseConfig

	DatabaseURL string

	JWTSecret     string
	JWTAlgorithm  string
	TokenTTL      time.Duration

	SSHUser           string
	SSHPrivateKeyPath string

	GatewayHost string

	HeadNodeImageDir    string
	DefaultImagePath    string

	MonitoringTunnelHost string
	MonitoringTunnelPort int
	MonitoringSSHUser    string
	MonitoringLocalPort  int
	MonitoringRemotePort int
	PrometheusHost       string // host:port queried directly when the tunnel is disabled

	PowerIdleWatts float64
	PowerMaxWatts  float64

	Workers map[int]Worker

	HTTPAddr string
}

// Load reads every field above from the environment, applying the
// defaults spec.md §6 implies (a default image path, and power_idle /
// power_max defaults of 100/250 watts from §4.5).
func Load() (*Config, error) {
	cfg := &Config{
		BaseConfig: BaseConfig{
			ServiceName: "orchestrator",
			LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
			Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		},
		DatabaseURL:  getEnvOrDefault("DATABASE_URL", "postgres://localhost/orchestrator"),
		JWTSecret:    getEnvOrDefault("JWT_SECRET", ""),
		JWTAlgorithm: getEnvOrDefault("JWT_ALGORITHM", "HS256"),

		SSHUser:           getEnvOrDefault("SSH_USER", "ubuntu"),
		SSHPrivateKeyPath: getEnvOrDefault("SSH_PRIVATE_KEY_PATH", ""),

		GatewayHost: getEnvOrDefault("GATEWAY_HOST", ""),

		HeadNodeImageDir: getEnvOrDefault("HEAD_NODE_IMAGE_DIR", "/home/ubuntu/images"),
		DefaultImagePath: getEnvOrDefault("DEFAULT_IMAGE_PATH", "/home/ubuntu/images/cirros-0.6.2-x86_64-disk.img"),

		MonitoringTunnelHost: getEnvOrDefault("MONITORING_TUNNEL_HOST", ""),
		MonitoringSSHUser:    getEnvOrDefault("MONITORING_SSH_USER", getEnvOrDefault("SSH_USER", "ubuntu")),
		PrometheusHost:       getEnvOrDefault("PROMETHEUS_HOST", "127.0.0.1:9090"),

		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":8000"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	tokenTTLMin, _ := strconv.Atoi(getEnvOrDefault("TOKEN_TTL_MINUTES", "60"))
	cfg.TokenTTL = time.Duration(tokenTTLMin) * time.Minute

	tunnelPort, _ := strconv.Atoi(getEnvOrDefault("MONITORING_TUNNEL_PORT", "22"))
	cfg.MonitoringTunnelPort = tunnelPort

	localPort, _ := strconv.Atoi(getEnvOrDefault("MONITORING_LOCAL_PORT", "9090"))
	cfg.MonitoringLocalPort = localPort

	remotePort, _ := strconv.Atoi(getEnvOrDefault("MONITORING_REMOTE_PORT", "9090"))
	cfg.MonitoringRemotePort = remotePort

	powerIdle, _ := strconv.ParseFloat(getEnvOrDefault("POWER_IDLE_WATTS", "100"), 64)
	cfg.PowerIdleWatts = powerIdle
	powerMax, _ := strconv.ParseFloat(getEnvOrDefault("POWER_MAX_WATTS", "250"), 64)
	cfg.PowerMaxWatts = powerMax

	workers, err := loadWorkers()
	if err != nil {
		return nil, err
	}
	cfg.Workers = workers

	return cfg, nil
}

// loadWorkers decodes the WORKER_<n>_HOST / WORKER_<n>_SSH_PORT table using
// env/v11's prefix option, for n in 1..WORKER_COUNT. This is the only
// place env/v11's typed struct decoding is used; every other field is
// read with getEnvOrDefault.
func loadWorkers() (map[int]Worker, error) {
	count, _ := strconv.Atoi(getEnvOrDefault("WORKER_COUNT", "0"))
	workers := make(map[int]Worker, count)

	for i := 1; i <= count; i++ {
		var w Worker
		opts := env.Options{Prefix: fmt.Sprintf("WORKER_%d_", i)}
		if err := env.ParseWithOptions(&w, opts); err != nil {
			return nil, fmt.Errorf("load worker %d: %w", i, err)
		}
		w.ID = i
		workers[i] = w
	}
	return workers, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
