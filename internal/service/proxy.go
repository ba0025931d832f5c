// Package service implements the stored-procedure and query proxy over one
// named connection pool.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/woodsintl/woodsreport/internal/connector"
	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/query"
)

const (
	// DashboardSQL counts the base tables of the connected database.
	DashboardSQL = `SELECT COUNT(*) as table_count, DB_NAME() as database_name FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE'`

	// ClientsSQL lists the distinct client names on container records.
	ClientsSQL = `SELECT DISTINCT [Client_Name] as client_name FROM [ud_woodsoft].[woodsoft].[tb_m_Container] WHERE [Client_Name] IS NOT NULL AND [Client_Name] != '' ORDER BY [Client_Name]`
)

// Caller-facing messages.
const (
	msgProcedureRequired = "procedure is required"
	msgQueryRequired     = "query is required"
	msgExecFailed        = "Failed to execute stored procedure"
	msgQueryFailed       = "Failed to execute query"
	msgDashboardFailed   = "Failed to get dashboard data"
	msgClientsFailed     = "Failed to fetch clients"
)

// ProxyConfig names the pool a Proxy serves and how it is presented.
type ProxyConfig struct {
	Pool      string
	StoreName string
	Database  string
}

// Proxy forwards exec and query calls to one named pool. It holds no state
// of its own beyond the registry reference and is safe for concurrent use.
type Proxy struct {
	registry *connector.Registry
	cfg      ProxyConfig
	logger   *slog.Logger
}

// NewProxy creates a Proxy over the named pool in registry.
func NewProxy(registry *connector.Registry, cfg ProxyConfig, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StoreName == "" {
		cfg.StoreName = cfg.Pool
	}
	return &Proxy{registry: registry, cfg: cfg, logger: logger}
}

// Execute runs a stored procedure with named parameters.
func (p *Proxy) Execute(ctx context.Context, procedure string, params model.Params) (*model.ProxyResult, error) {
	procedure = strings.TrimSpace(procedure)
	if procedure == "" {
		return nil, badRequest(msgProcedureRequired, nil)
	}
	return p.run(ctx, connector.Command{Kind: connector.KindExec, Target: procedure, Params: params}, msgExecFailed)
}

// RunQuery runs a parameterized SQL batch. Parameter values are bound by
// name and referenced in the text as @name.
func (p *Proxy) RunQuery(ctx context.Context, sqlText string, params model.Params) (*model.ProxyResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, badRequest(msgQueryRequired, nil)
	}
	return p.run(ctx, connector.Command{Kind: connector.KindQuery, Target: sqlText, Params: params}, msgQueryFailed)
}

// Status reports the store name, database label and pool state. It never
// fails.
func (p *Proxy) Status() model.StoreStatus {
	return model.StoreStatus{
		Store:    p.cfg.StoreName,
		Database: p.cfg.Database,
		Status:   p.registry.Status(p.cfg.Pool),
	}
}

// Dashboard runs the table-count probe.
func (p *Proxy) Dashboard(ctx context.Context) (*model.DashboardResponse, error) {
	res, err := p.run(ctx, connector.Command{Kind: connector.KindQuery, Target: DashboardSQL}, msgDashboardFailed)
	if err != nil {
		return nil, err
	}
	return &model.DashboardResponse{
		Success:  true,
		Store:    p.cfg.StoreName,
		Database: p.cfg.Database,
		Data:     res.First(),
	}, nil
}

// Clients returns the distinct client names, or an empty list when the
// query produced no recordset.
func (p *Proxy) Clients(ctx context.Context) ([]model.Client, error) {
	res, err := p.run(ctx, connector.Command{Kind: connector.KindQuery, Target: ClientsSQL}, msgClientsFailed)
	if err != nil {
		return nil, err
	}

	rows := res.First()
	clients := make([]model.Client, 0, rows.Len())
	for _, row := range rows.Rows {
		name, _ := row["client_name"].(string)
		clients = append(clients, model.Client{ClientName: name})
	}
	return clients, nil
}

// Ping checks that the pool is present and reachable.
func (p *Proxy) Ping(ctx context.Context) error {
	conn, err := p.registry.Get(p.cfg.Pool)
	if err != nil {
		return unavailable(p.notConnected(), err)
	}
	if err := conn.Ping(ctx); err != nil {
		return unavailable(p.notConnected(), err)
	}
	return nil
}

// run applies the checks shared by every operation, in order: parameter
// shape, pool presence, procedure name, then execution.
func (p *Proxy) run(ctx context.Context, cmd connector.Command, failMsg string) (*model.ProxyResult, error) {
	if cmd.Params == nil {
		cmd.Params = model.Params{}
	}
	if err := cmd.Params.Validate(); err != nil {
		return nil, badRequest(err.Error(), err)
	}

	conn, err := p.registry.Get(p.cfg.Pool)
	if err != nil {
		p.logger.Warn("proxy call with pool absent",
			"pool", p.cfg.Pool,
			"kind", string(cmd.Kind),
			"error", err,
		)
		return nil, unavailable(p.notConnected(), err)
	}

	if cmd.Kind == connector.KindExec {
		if err := query.ValidateProcedureName(cmd.Target); err != nil {
			p.logger.Error("rejected procedure name",
				"procedure", cmd.Target,
				"error", err,
			)
			return nil, execution(failMsg, err)
		}
	}

	start := time.Now()
	res, err := conn.Exec(ctx, cmd)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Error("proxy call failed",
			"pool", p.cfg.Pool,
			"kind", string(cmd.Kind),
			"target", logTarget(cmd),
			"params", cmd.Params.Names(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, execution(failMsg, err)
	}
	if res == nil {
		res = model.NewProxyResult()
	}
	if res.Recordsets == nil {
		res.Recordsets = []model.Recordset{}
	}
	if res.RowsAffected == nil {
		res.RowsAffected = []int64{}
	}

	p.logger.Debug("proxy call",
		"pool", p.cfg.Pool,
		"kind", string(cmd.Kind),
		"target", logTarget(cmd),
		"recordsets", len(res.Recordsets),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (p *Proxy) notConnected() string {
	return fmt.Sprintf("%s database is not connected", p.cfg.StoreName)
}

// logTarget keeps procedure names whole and truncates long SQL text.
func logTarget(cmd connector.Command) string {
	const maxLen = 200
	if cmd.Kind == connector.KindExec || len(cmd.Target) <= maxLen {
		return cmd.Target
	}
	return cmd.Target[:maxLen] + "..."
}
