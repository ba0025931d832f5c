package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/model"
)

// Factory is a function that creates a new Connector instance.
type Factory func() Connector

// PoolSpec describes one named pool to create at startup.
type PoolSpec struct {
	Name    string
	Env     config.PoolConfig
	Options PoolOptions
}

// Registry maps pool names to open connectors. A name is either active or
// absent with a recorded reason; it never holds two pools at once.
type Registry struct {
	mu      sync.RWMutex
	factory Factory
	active  map[string]Connector
	absent  map[string]error
}

// NewRegistry creates a new empty Registry that builds connectors with
// factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		active:  make(map[string]Connector),
		absent:  make(map[string]error),
	}
}

// Initialize creates every pool in specs independently. A pool with missing
// environment is recorded absent with ErrConfiguration; a pool whose first
// connection fails is recorded absent with ErrConnectivity. Initialize never
// fails: the process keeps running with whatever pools came up.
func Initialize(ctx context.Context, specs []PoolSpec, factory Factory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := NewRegistry(factory)

	for _, spec := range specs {
		name := spec.Name
		if name == "" {
			name = spec.Env.Name
		}

		if missing := spec.Env.Missing(); len(missing) > 0 {
			reason := fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
			r.MarkAbsent(name, reason)
			logger.Warn("pool not configured",
				"pool", name,
				"missing", missing,
			)
			continue
		}

		cfg := NewConnectionConfig(spec.Env, spec.Options)
		if err := r.Connect(ctx, name, cfg); err != nil {
			r.MarkAbsent(name, fmt.Errorf("%w: %v", ErrConnectivity, err))
			logger.Error("pool connection failed",
				"pool", name,
				"dsn", RedactDSN(cfg.DSN),
				"error", err,
			)
			continue
		}

		logger.Info("pool connected",
			"pool", name,
			"server", spec.Env.Server,
			"database", spec.Env.Database,
			"max_open_conns", cfg.MaxOpenConns,
		)
	}
	return r
}

// Connect creates a new connector for name and connects it. It refuses to
// replace a pool that is already active under the same name.
func (r *Registry) Connect(ctx context.Context, name string, cfg ConnectionConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[name]; ok {
		return fmt.Errorf("%w: %q", ErrPoolExists, name)
	}
	if r.factory == nil {
		return fmt.Errorf("no connector factory for pool %q", name)
	}

	conn := r.factory()
	if err := conn.Connect(ctx, cfg); err != nil {
		return fmt.Errorf("failed to connect pool %q: %w", name, err)
	}

	delete(r.absent, name)
	r.active[name] = conn
	return nil
}

// Register installs an already connected connector under name.
func (r *Registry) Register(name string, conn Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[name]; ok {
		return fmt.Errorf("%w: %q", ErrPoolExists, name)
	}
	delete(r.absent, name)
	r.active[name] = conn
	return nil
}

// MarkAbsent records name as unavailable for reason. An active pool under
// the same name is left untouched.
func (r *Registry) MarkAbsent(name string, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[name]; ok {
		return
	}
	r.absent[name] = reason
}

// Get returns the connector for a pool, or an *AbsentError wrapping
// ErrPoolAbsent.
func (r *Registry) Get(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.active[name]
	if !ok {
		return nil, &AbsentError{Name: name, Reason: r.absent[name]}
	}
	return conn, nil
}

// Status reports whether the named pool is connected.
func (r *Registry) Status(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.active[name]; ok {
		return model.StatusConnected
	}
	return model.StatusDisconnected
}

// Disconnect removes and disconnects a pool.
func (r *Registry) Disconnect(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[name]
	if !ok {
		return &AbsentError{Name: name, Reason: r.absent[name]}
	}

	err := conn.Disconnect()
	delete(r.active, name)
	return err
}

// CloseAll disconnects every active pool and returns the joined errors of
// those that failed to close.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	names := make([]string, 0, len(r.active))
	for n := range r.active {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := r.Disconnect(name); err != nil && !errors.Is(err, ErrPoolAbsent) {
			errs = append(errs, fmt.Errorf("close pool %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns every known pool name, active or absent, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.active)+len(r.absent))
	for n := range r.active {
		names = append(names, n)
	}
	for n := range r.absent {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
