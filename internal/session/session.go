// Package session implements the client-side login lifecycle: restoring a
// persisted session, logging in through the login procedure, refreshing an
// inactivity deadline on user activity and expiring the session when the
// deadline passes.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/woodsintl/woodsreport/internal/model"
)

// Storage keys of the persisted session. Every key starts with KeyPrefix.
const (
	KeyPrefix       = "woods_international_"
	UserKey         = KeyPrefix + "user"
	LastActivityKey = KeyPrefix + "last_activity"
)

// DefaultTimeout is the inactivity period after which a session expires.
const DefaultTimeout = 15 * time.Minute

// DefaultLoginProcedure validates credentials and returns the user's row.
const DefaultLoginProcedure = "proc_logindone"

var (
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrLoginFailed        = errors.New("Login failed. Please try again.")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrLoginInProgress    = errors.New("login already in progress")
	ErrNotAuthenticated   = errors.New("not logged in")
)

// State is the lifecycle state of a Manager.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Activity is a user interaction that refreshes the inactivity deadline.
type Activity string

const (
	ActivityPointerDown Activity = "mousedown"
	ActivityKeyDown     Activity = "keydown"
	ActivityScroll      Activity = "scroll"
	ActivityTouchStart  Activity = "touchstart"
	ActivityClick       Activity = "click"
)

// Activities lists every activity that refreshes the deadline.
func Activities() []Activity {
	return []Activity{ActivityPointerDown, ActivityKeyDown, ActivityScroll, ActivityTouchStart, ActivityClick}
}

// Valid reports whether a is one of Activities.
func (a Activity) Valid() bool {
	for _, known := range Activities() {
		if a == known {
			return true
		}
	}
	return false
}

// User is the persisted identity of a logged-in user. UserData holds the
// whole row returned by the login procedure.
type User struct {
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	UserData        model.Row `json:"userData"`
}

// Executor runs the login procedure.
type Executor interface {
	Execute(ctx context.Context, procedure string, params model.Params) (*model.ProxyResult, error)
}

// userFromRow builds a User from the first row of the login result. The
// typed username is used when the row carries none.
func userFromRow(row model.Row, typed string) User {
	u := User{
		Username:        typed,
		IsAuthenticated: true,
		UserData:        row,
	}
	if v, ok := row["Username"]; ok && v != nil {
		u.Username = fmt.Sprint(v)
	}
	if v, ok := row["Role"]; ok && v != nil {
		u.Role = fmt.Sprint(v)
	}
	return u
}
