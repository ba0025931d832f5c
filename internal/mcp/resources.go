package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	storeURI          = "woods://store"
	reportsURI        = "woods://reports"
	reportURIPrefix   = "woods://report/"
	reportURITemplate = "woods://report/{key}"
)

// registerResources adds read-only context documents: the pool status, the
// report catalog and one document per report.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			storeURI,
			"Database Status",
			mcp.WithResourceDescription("Store name, database label and connection state of the pool."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleStoreResource,
	)

	srv.AddResource(
		mcp.NewResource(
			reportsURI,
			"Report Catalog",
			mcp.WithResourceDescription("Every report with its stored procedure and the filters it takes."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleReportsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			reportURITemplate,
			"Report",
			mcp.WithTemplateDescription("One report: title, procedure and the parameters it binds."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReportResource,
	)
}

func (s *MCPServer) handleStoreResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	return jsonResource(storeURI, s.proxy.Status())
}

func (s *MCPServer) handleReportsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	return jsonResource(reportsURI, s.reportInfos(""))
}

// handleReportResource serves woods://report/{key}.
func (s *MCPServer) handleReportResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	key := strings.TrimPrefix(uri, reportURIPrefix)
	if key == "" || key == uri {
		return nil, fmt.Errorf("invalid report URI %q: expected %s", uri, reportURITemplate)
	}

	r, ok := s.catalog.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("report %q not found", key)
	}
	return jsonResource(uri, newReportInfo(r))
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
