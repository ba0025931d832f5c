package connector

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/model"
)

// CommandKind selects how a Command's target is executed.
type CommandKind string

const (
	// KindExec runs Target as a stored procedure.
	KindExec CommandKind = "exec"
	// KindQuery runs Target as a parameterized SQL batch.
	KindQuery CommandKind = "query"
)

// Command is a single exec or query call against a pool. Params are always
// bound by name and never spliced into Target.
type Command struct {
	Kind   CommandKind
	Target string
	Params model.Params
}

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// PoolOptions are the fixed pool settings applied on top of the
// environment-derived connection configuration.
type PoolOptions struct {
	MaxOpenConns           int
	MinConns               int
	IdleTimeout            time.Duration
	ConnectTimeout         time.Duration
	Encrypt                bool
	TrustServerCertificate bool
}

// DefaultPoolOptions returns max 10 / min 0 connections, a 30s idle timeout
// and encrypted transport with relaxed certificate validation.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpenConns:           10,
		MinConns:               0,
		IdleTimeout:            30 * time.Second,
		ConnectTimeout:         15 * time.Second,
		Encrypt:                true,
		TrustServerCertificate: true,
	}
}

// Connector is the interface a pool backend must implement.
type Connector interface {
	// Connection management
	Connect(ctx context.Context, cfg ConnectionConfig) error
	Disconnect() error
	Ping(ctx context.Context) error

	// Exec runs cmd on one pooled connection, released before returning,
	// and relays every recordset and rows-affected count in order.
	Exec(ctx context.Context, cmd Command) (*model.ProxyResult, error)

	// Metadata
	DriverName() string
}

// NewConnectionConfig combines the environment-derived pool configuration
// with the fixed pool options.
func NewConnectionConfig(pool config.PoolConfig, opts PoolOptions) ConnectionConfig {
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = DefaultPoolOptions().MaxOpenConns
	}
	return ConnectionConfig{
		Driver:          "mssql",
		DSN:             BuildDSN(pool, opts),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxOpen,
		ConnMaxIdleTime: opts.IdleTimeout,
		ConnectTimeout:  opts.ConnectTimeout,
	}
}

// BuildDSN renders a sqlserver:// URL for the pool. Credentials are
// percent-encoded so passwords containing @, # or % parse unambiguously.
func BuildDSN(pool config.PoolConfig, opts PoolOptions) string {
	port := pool.Port
	if port <= 0 {
		port = config.DefaultPort
	}

	q := url.Values{}
	q.Set("database", pool.Database)
	q.Set("encrypt", strconv.FormatBool(opts.Encrypt))
	q.Set("TrustServerCertificate", strconv.FormatBool(opts.TrustServerCertificate))
	if opts.ConnectTimeout > 0 {
		q.Set("dial timeout", strconv.Itoa(int(opts.ConnectTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(pool.User, pool.Password),
		Host:     net.JoinHostPort(pool.Server, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// RedactDSN returns dsn with its password replaced, for logging.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	return u.Redacted()
}
