package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/woodsintl/woodsreport/internal/model"
)

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	Store          Store
	Executor       Executor
	Clock          Clock
	Timeout        time.Duration
	LoginProcedure string
	// OnExpire is called once per expiry, outside the manager's lock.
	OnExpire func()
	Logger   *slog.Logger
}

// Manager owns one session. It is safe for concurrent use; activity,
// expiry and logout are serialized by its mutex.
type Manager struct {
	store    Store
	exec     Executor
	clock    Clock
	timeout  time.Duration
	loginSP  string
	onExpire func()
	logger   *slog.Logger

	mu           sync.Mutex
	state        State
	user         *User
	lastActivity time.Time
	timer        Timer
	// gen invalidates timer callbacks superseded by a reset, logout or close.
	gen uint64
	// epoch invalidates in-flight logins superseded by a logout or restore.
	epoch uint64
}

// NewManager creates a Manager in the Anonymous state. Call Restore to pick
// up a persisted session.
func NewManager(opts Options) *Manager {
	m := &Manager{
		store:    opts.Store,
		exec:     opts.Executor,
		clock:    opts.Clock,
		timeout:  opts.Timeout,
		loginSP:  opts.LoginProcedure,
		onExpire: opts.OnExpire,
		logger:   opts.Logger,
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.loginSP == "" {
		m.loginSP = DefaultLoginProcedure
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// Restore loads the persisted session. A valid record younger than the
// timeout makes the manager Authenticated with a fresh deadline and a
// rewritten timestamp. A stale, half-present or malformed record is
// cleared and the manager becomes Anonymous.
func (m *Manager) Restore() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.epoch++
	m.state = Anonymous
	m.user = nil

	rec, err := loadRecord(m.store)
	if err != nil {
		if !errors.Is(err, errMalformed) {
			m.logger.Debug("session store read failed", "error", err)
		}
		m.clearLocked()
		return m.state
	}
	if rec == nil {
		return m.state
	}

	now := m.clock.Now()
	if now.Sub(rec.lastActivity) >= m.timeout {
		m.clearLocked()
		return m.state
	}

	u := rec.user
	m.user = &u
	m.state = Authenticated
	m.touchLocked(now)
	return m.state
}

// Login validates the credentials with the login procedure. On success the
// user is persisted and the inactivity deadline starts. A failed attempt
// leaves any existing session in place.
func (m *Manager) Login(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if m.exec == nil {
		return nil, fmt.Errorf("%w: no executor configured", ErrLoginFailed)
	}

	m.mu.Lock()
	if m.state == Authenticating {
		m.mu.Unlock()
		return nil, ErrLoginInProgress
	}
	m.state = Authenticating
	epoch := m.epoch
	m.mu.Unlock()

	res, err := m.exec.Execute(ctx, m.loginSP, model.Params{
		"usrname": username,
		"passw":   password,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		// Logged out or restored while the call was in flight.
		return nil, ErrLoginFailed
	}
	if err != nil {
		m.settleFailedLoginLocked()
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	rows := res.First()
	if rows.Len() == 0 || len(rows.Rows[0]) == 0 {
		m.settleFailedLoginLocked()
		return nil, ErrInvalidCredentials
	}

	u := userFromRow(rows.Rows[0], username)
	if err := saveUser(m.store, u); err != nil {
		m.settleFailedLoginLocked()
		return nil, fmt.Errorf("%w: save session: %v", ErrLoginFailed, err)
	}
	m.user = &u
	m.state = Authenticated
	m.touchLocked(m.clock.Now())

	out := u
	return &out, nil
}

// settleFailedLoginLocked returns to the state the failed login started
// from. A session that expired meanwhile is not revived.
func (m *Manager) settleFailedLoginLocked() {
	if m.user != nil {
		m.state = Authenticated
		return
	}
	m.state = Anonymous
}

// RecordActivity refreshes the inactivity deadline. It reports whether the
// session is still authenticated. Activity that arrives at or after the
// deadline expires the session instead of extending it.
func (m *Manager) RecordActivity(a Activity) bool {
	if !a.Valid() {
		return m.State() == Authenticated
	}

	m.mu.Lock()
	if m.state != Authenticated {
		m.mu.Unlock()
		return false
	}
	now := m.clock.Now()
	if now.Sub(m.lastActivity) >= m.timeout {
		notify := m.expireLocked()
		m.mu.Unlock()
		notify()
		return false
	}
	m.touchLocked(now)
	m.mu.Unlock()
	return true
}

// Logout cancels the deadline and clears the persisted session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.epoch++
	m.state = Anonymous
	m.user = nil
	return clearRecord(m.store)
}

// Close cancels the deadline without touching the persisted session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns the logged-in user.
func (m *Manager) User() (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return User{}, ErrNotAuthenticated
	}
	return *m.user, nil
}

// Deadline returns when the session expires without further activity.
func (m *Manager) Deadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return time.Time{}, false
	}
	return m.lastActivity.Add(m.timeout), true
}

// touchLocked records activity at now, persists the timestamp and replaces
// the pending timer with one that fires a full timeout later.
func (m *Manager) touchLocked(now time.Time) {
	m.lastActivity = now
	if err := saveLastActivity(m.store, now); err != nil {
		m.logger.Debug("session store write failed", "key", LastActivityKey, "error", err)
	}

	m.stopTimerLocked()
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.timeout, func() { m.fire(gen) })
}

// stopTimerLocked cancels the pending timer and invalidates any callback
// that already started.
func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.user == nil {
		m.mu.Unlock()
		return
	}
	notify := m.expireLocked()
	m.mu.Unlock()
	notify()
}

// expireLocked clears the session and returns the callback to run once the
// lock is released.
func (m *Manager) expireLocked() func() {
	m.stopTimerLocked()
	m.user = nil
	if m.state != Authenticating {
		m.state = Expired
	}
	m.clearLocked()

	if m.onExpire == nil {
		return func() {}
	}
	return m.onExpire
}

func (m *Manager) clearLocked() {
	if err := clearRecord(m.store); err != nil {
		m.logger.Debug("session store clear failed", "error", err)
	}
}
