// Package connectortest provides an in-memory connector.Connector that
// records every command it receives.
package connectortest

import (
	"context"
	"errors"
	"sync"

	"github.com/woodsintl/woodsreport/internal/connector"
	"github.com/woodsintl/woodsreport/internal/model"
)

// ErrConnect is returned by Connect when the fake is configured to fail.
var ErrConnect = errors.New("fake connect failure")

// Fake is a connector.Connector backed by canned results.
type Fake struct {
	// Result is returned by Exec when Handler is nil.
	Result *model.ProxyResult
	// Err is returned by Exec when non-nil and Handler is nil.
	Err error
	// Handler, when set, computes the result of each command.
	Handler func(cmd connector.Command) (*model.ProxyResult, error)
	// FailConnect makes Connect return ErrConnect.
	FailConnect bool
	// PingErr is returned by Ping.
	PingErr error

	mu           sync.Mutex
	commands     []connector.Command
	cfg          connector.ConnectionConfig
	connected    bool
	disconnected bool
}

// Factory returns a connector.Factory that always hands out f.
func (f *Fake) Factory() connector.Factory {
	return func() connector.Connector { return f }
}

func (f *Fake) Connect(_ context.Context, cfg connector.ConnectionConfig) error {
	if f.FailConnect {
		return ErrConnect
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	f.connected = true
	return nil
}

func (f *Fake) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnected = true
	return nil
}

func (f *Fake) Ping(_ context.Context) error { return f.PingErr }

func (f *Fake) Exec(ctx context.Context, cmd connector.Command) (*model.ProxyResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, copyCommand(cmd))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Handler != nil {
		return f.Handler(cmd)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result == nil {
		return model.NewProxyResult(), nil
	}
	return f.Result, nil
}

func (f *Fake) DriverName() string { return "fake" }

// Commands returns a copy of every command received so far.
func (f *Fake) Commands() []connector.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]connector.Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// Config returns the configuration passed to the last Connect.
func (f *Fake) Config() connector.ConnectionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

// Disconnected reports whether Disconnect was called.
func (f *Fake) Disconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// Registry returns a registry holding f under name.
func Registry(name string, f *Fake) *connector.Registry {
	r := connector.NewRegistry(f.Factory())
	r.Register(name, f)
	return r
}

func copyCommand(cmd connector.Command) connector.Command {
	out := cmd
	if cmd.Params != nil {
		out.Params = make(model.Params, len(cmd.Params))
		for k, v := range cmd.Params {
			out.Params[k] = v
		}
	}
	return out
}
