package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/woodsintl/woodsreport/internal/client"
	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/connector"
	"github.com/woodsintl/woodsreport/internal/connector/mssql"
	"github.com/woodsintl/woodsreport/internal/report"
	"github.com/woodsintl/woodsreport/internal/service"
)

// resolveDataDir returns the data directory from --data-dir,
// WOODSREPORT_DATA_DIR, or ~/.woodsreport as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("WOODSREPORT_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".woodsreport")
}

// loadConfig returns the effective configuration: defaults, then the config
// file found by initConfig, then WOODSREPORT_* environment overrides.
func loadConfig() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrideString(&cfg.Server.Host, "server.host")
	overrideInt(&cfg.Server.Port, "server.port")
	overrideString(&cfg.Server.StaticDir, "server.static_dir")
	overrideInt(&cfg.Server.RateLimit, "server.rate_limit")
	overrideString(&cfg.Client.APIBase, "client.api_base")
	overrideString(&cfg.Session.Backend, "session.backend")
	overrideString(&cfg.Session.InactivityTimeout, "session.inactivity_timeout")
	overrideString(&cfg.Logging.Level, "logging.level")
	overrideString(&cfg.Logging.Format, "logging.format")

	if apiBase != "" {
		cfg.Client.APIBase = apiBase
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func overrideInt(dst *int, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}

// newLogger builds the process logger. Logs go to stderr so that report
// output on stdout stays clean.
func newLogger(cfg *config.YAMLConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if devMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// poolOptions converts the pool section of the config file.
func poolOptions(cfg *config.YAMLConfig) connector.PoolOptions {
	def := connector.DefaultPoolOptions()
	opts := connector.PoolOptions{
		MaxOpenConns:           cfg.Pool.MaxOpenConns,
		MinConns:               cfg.Pool.MinConns,
		IdleTimeout:            config.ParseDuration(cfg.Pool.IdleTimeout, def.IdleTimeout),
		ConnectTimeout:         config.ParseDuration(cfg.Pool.ConnectTimeout, def.ConnectTimeout),
		Encrypt:                cfg.Pool.Encrypt,
		TrustServerCertificate: cfg.Pool.TrustServerCertificate,
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = def.MaxOpenConns
	}
	return opts
}

// openProxy creates the store's pool and the proxy over it. A pool that
// cannot be created is logged and left absent; the proxy then answers 503.
func openProxy(ctx context.Context, cfg *config.YAMLConfig, logger *slog.Logger) (*connector.Registry, *service.Proxy) {
	pool := config.PoolFromEnv(cfg.Store.Prefix)
	specs := []connector.PoolSpec{{
		Name:    pool.Name,
		Env:     pool,
		Options: poolOptions(cfg),
	}}
	registry := connector.Initialize(ctx, specs, mssql.New, logger)

	database := cfg.Store.Database
	if database == "" {
		database = pool.Database
	}
	proxy := service.NewProxy(registry, service.ProxyConfig{
		Pool:      pool.Name,
		StoreName: cfg.Store.Name,
		Database:  database,
	}, logger)
	return registry, proxy
}

// loadCatalog applies the configured log report procedures to the built-in
// catalog.
func loadCatalog(cfg *config.YAMLConfig) (*report.Catalog, error) {
	catalog, err := report.Default().WithProcedures(cfg.Reports)
	if err != nil {
		return nil, fmt.Errorf("config reports: %w", err)
	}
	return catalog, nil
}

// newAPIClient returns a client for the configured API base URL.
func newAPIClient(cfg *config.YAMLConfig) *client.Client {
	return client.New(cfg.Client.APIBase, config.ParseDuration(cfg.Client.Timeout, client.DefaultTimeout))
}

// commandContext bounds a single client command.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
