package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/openapi"
	"github.com/woodsintl/woodsreport/internal/server"
)

const banner = `
__      _____   ___  ___  ___
\ \    / / _ \ / _ \|   \/ __|
 \ \/\/ / (_) | (_) | |) \__ \
  \_/\_/ \___/ \___/|___/|___/  report proxy
`

func newServeCmd() *cobra.Command {
	var (
		port      int
		host      string
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the report proxy API server",
		Long: `Start the HTTP server that proxies stored procedure and query calls to the
Woods International database. The pool is configured from the environment
(WOODS_INTERNATIONAL_SERVER, _PORT, _USER, _PASSWORD, _DATABASE). When it cannot
be created the server still starts and answers 503 on every proxy call.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Serve a built frontend from this directory")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.static_dir", cmd.Flags().Lookup("static-dir"))

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, banner)
	fmt.Fprintln(out)

	ctx, cancel := context.WithTimeout(context.Background(), 2*config.ParseDuration(cfg.Pool.ConnectTimeout, 15*time.Second))
	registry, proxy := openProxy(ctx, cfg, logger)
	cancel()

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: config.ParseDuration(cfg.Server.ShutdownTimeout, 30*time.Second),
		CORSOrigins:     cfg.Server.CORS.Origins,
		MaxBodySize:     config.ParseSize(cfg.Server.MaxBodySize, 1<<20),
		RateLimit:       cfg.Server.RateLimit,
		StaticDir:       cfg.Server.StaticDir,
		API: openapi.Info{
			Store:   cfg.Store.Name,
			Version: versionString(),
		},
	}
	srv := server.New(srvCfg, registry, proxy, catalog, logger)

	status := proxy.Status()
	fmt.Fprintf(out, "→ woodsreport %s\n", versionString())
	fmt.Fprintf(out, "→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.StaticDir != "" {
		fmt.Fprintf(out, "→ Frontend:   %s\n", cfg.Server.StaticDir)
	}
	fmt.Fprintf(out, "→ %s (%s): %s\n", status.Store, status.Database, status.Status)
	if status.Status != model.StatusConnected {
		fmt.Fprintln(out, "  proxy calls will answer 503 until the pool is configured")
	}
	fmt.Fprintln(out)

	return srv.ListenAndServe()
}
