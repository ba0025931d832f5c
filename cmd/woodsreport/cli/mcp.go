package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/woodsintl/woodsreport/internal/config"
	wmcp "github.com/woodsintl/woodsreport/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the report catalog
and the proxy operations as tools for AI agents. Supports stdio (default) and
HTTP transports.

The MCP server opens its own database pool from the environment, the same way
'woodsreport serve' does.`,
		Example: `  woodsreport mcp                             # stdio mode
  woodsreport mcp --transport http --port 3001  # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	switch transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*config.ParseDuration(cfg.Pool.ConnectTimeout, 15*time.Second))
	registry, proxy := openProxy(ctx, cfg, logger)
	cancel()
	defer func() {
		if err := registry.CloseAll(); err != nil {
			logger.Error("closing pools", "error", err)
		}
	}()

	srv := wmcp.NewMCPServer(proxy, catalog, versionString(), logger)

	if transport == "http" {
		addr := fmt.Sprintf(":%d", port)
		logger.Info("MCP server listening", "transport", "http", "addr", addr)
		return srv.ServeHTTP(addr)
	}
	logger.Info("MCP server starting", "transport", "stdio")
	return srv.ServeStdio()
}
