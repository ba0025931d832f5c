package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/woodsintl/woodsreport/internal/report"
	"github.com/woodsintl/woodsreport/internal/service"
)

// MCPServer exposes the proxy and the report catalog as MCP tools so that
// agents can run the same reports the dashboard does.
type MCPServer struct {
	proxy   *service.Proxy
	catalog *report.Catalog
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer with every tool and resource
// registered. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(proxy *service.Proxy, catalog *report.Catalog, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = report.Default()
	}
	if version == "" {
		version = "dev"
	}
	s := &MCPServer{
		proxy:   proxy,
		catalog: catalog,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"Woods International Reports",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP over stdin/stdout for clients that launch the
// binary as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP serves MCP in Streamable HTTP mode on addr (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

// procedures and ad-hoc batches may write, so they are never marked
// read-only.
func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
