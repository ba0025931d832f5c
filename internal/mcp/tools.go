package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/report"
)

// registerTools registers every woods_* tool on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery tools -----

	srv.AddTool(
		mcp.NewTool("woods_store_status",
			mcp.WithDescription(
				"Report whether the Woods International database pool is connected. "+
					"Call this first: every other tool fails while the pool is disconnected.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleStoreStatus,
	)

	srv.AddTool(
		mcp.NewTool("woods_list_reports",
			mcp.WithDescription(
				"List the reports that can be run with woods_run_report, with the "+
					"filters each one takes (year, client, from/to dates). Log reports "+
					"without a configured procedure are listed but cannot be run.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("category",
				mcp.Description("Only list reports in this menu"),
				mcp.Enum(string(report.CategoryReports), string(report.CategoryLogs)),
			),
		),
		s.handleListReports,
	)

	srv.AddTool(
		mcp.NewTool("woods_list_clients",
			mcp.WithDescription(
				"List the distinct client names found on container records. Use one "+
					"of these as the client filter of woods_run_report.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListClients,
	)

	// ----- Report tool -----

	srv.AddTool(
		mcp.NewTool("woods_run_report",
			mcp.WithDescription(
				"Run a catalog report by key. Filters a report does not take are "+
					"ignored. Dates are YYYY-MM-DD or DD/MM/YYYY; an omitted date is "+
					"sent as an empty string. An omitted client means all clients.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("key",
				mcp.Required(),
				mcp.Description("Report key from woods_list_reports (e.g. container_month_wise)"),
			),
			mcp.WithNumber("year",
				mcp.Description("Year for year-based reports"),
			),
			mcp.WithString("client",
				mcp.Description("Client name for client-wise reports"),
			),
			mcp.WithString("from",
				mcp.Description("Start date for date-range reports"),
			),
			mcp.WithString("to",
				mcp.Description("End date for date-range reports"),
			),
		),
		s.handleRunReport,
	)

	// ----- Proxy tools -----

	srv.AddTool(
		mcp.NewTool("woods_exec_procedure",
			mcp.WithDescription(
				"Execute a stored procedure with named parameters and return every "+
					"recordset it produces. Parameter names may be written with or "+
					"without a leading @. Values must be strings, numbers, booleans or null.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("procedure",
				mcp.Required(),
				mcp.Description("Procedure name, optionally schema-qualified (e.g. dbo.proc_getcontainersumyear)"),
			),
			mcp.WithObject("params",
				mcp.Description("Parameter values by name (e.g. {\"year\": 2024})"),
			),
		),
		s.handleExecProcedure,
	)

	srv.AddTool(
		mcp.NewTool("woods_run_query",
			mcp.WithDescription(
				"Run a SQL batch against the database. Reference parameters in the "+
					"text as @name and pass their values in params; never splice "+
					"values into the SQL text.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("SQL text (e.g. SELECT * FROM t WHERE id = @id)"),
			),
			mcp.WithObject("params",
				mcp.Description("Parameter values by name"),
			),
		),
		s.handleRunQuery,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) handleStoreStatus(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	return successJSON(s.proxy.Status())
}

// reportInfo is the catalog entry as shown to agents.
type reportInfo struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Procedure   string   `json:"procedure,omitempty"`
	Filters     []string `json:"filters"`
	Params      []string `json:"params"`
	Runnable    bool     `json:"runnable"`
}

func newReportInfo(r report.Report) reportInfo {
	params := make([]string, 0, len(r.Params()))
	for _, p := range r.Params() {
		params = append(params, p.Name+" "+p.SQLType)
	}
	filters := r.Inputs.Names()
	if filters == nil {
		filters = []string{}
	}
	return reportInfo{
		Key:         r.Key,
		Title:       r.Title,
		Description: r.Description,
		Category:    string(r.Category),
		Procedure:   r.Procedure,
		Filters:     filters,
		Params:      params,
		Runnable:    r.Procedure != "",
	}
}

func (s *MCPServer) reportInfos(category report.Category) []reportInfo {
	reports := s.catalog.List(category)
	out := make([]reportInfo, 0, len(reports))
	for _, r := range reports {
		out = append(out, newReportInfo(r))
	}
	return out
}

func (s *MCPServer) handleListReports(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	category := report.Category(optionalString(request, "category"))
	switch category {
	case "", report.CategoryReports, report.CategoryLogs:
	default:
		return toolError("Unknown category %q. Use %q or %q.", category, report.CategoryReports, report.CategoryLogs)
	}
	return successJSON(s.reportInfos(category))
}

func (s *MCPServer) handleListClients(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	clients, err := s.proxy.Clients(ctx)
	if err != nil {
		return proxyError(err)
	}
	return successJSON(clients)
}

func (s *MCPServer) handleRunReport(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	key, err := requireString(request, "key")
	if err != nil {
		return toolError("%v. Use woods_list_reports to find report keys.", err)
	}

	ui := report.UIState{
		Year:   optionalInt(request, "year", 0),
		Client: strings.TrimSpace(optionalString(request, "client")),
	}
	if ui.From, err = report.ParseDate(optionalString(request, "from")); err != nil {
		return toolError("Invalid from date: %v", err)
	}
	if ui.To, err = report.ParseDate(optionalString(request, "to")); err != nil {
		return toolError("Invalid to date: %v", err)
	}

	res, err := s.catalog.Run(ctx, s.proxy, key, ui)
	switch {
	case errors.Is(err, report.ErrUnknownReport):
		keys := make([]string, 0)
		for _, r := range s.catalog.List("") {
			keys = append(keys, r.Key)
		}
		return toolError("Report %q not found. Available reports: %v", key, keys)
	case errors.Is(err, report.ErrNoProcedure):
		return toolError("Report %q has no stored procedure configured.", key)
	case err != nil:
		return proxyError(err)
	}
	return successJSON(res)
}

func (s *MCPServer) handleExecProcedure(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	procedure, err := requireString(request, "procedure")
	if err != nil {
		return toolError("%v", err)
	}
	params, err := paramsArg(request)
	if err != nil {
		return toolError("%v", err)
	}

	res, err := s.proxy.Execute(ctx, procedure, params)
	if err != nil {
		return proxyError(err)
	}
	s.logger.Debug("mcp procedure executed", "procedure", procedure, "recordsets", len(res.Recordsets))
	return successJSON(res)
}

func (s *MCPServer) handleRunQuery(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	sqlText, err := requireString(request, "sql")
	if err != nil {
		return toolError("%v", err)
	}
	params, err := paramsArg(request)
	if err != nil {
		return toolError("%v", err)
	}

	res, err := s.proxy.RunQuery(ctx, sqlText, params)
	if err != nil {
		return proxyError(err)
	}
	return successJSON(resultOrEmpty(res))
}

func resultOrEmpty(res *model.ProxyResult) *model.ProxyResult {
	if res == nil {
		return model.NewProxyResult()
	}
	return res
}
