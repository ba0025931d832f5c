package service

import "fmt"

// ErrorKind classifies a proxy failure for the HTTP boundary.
type ErrorKind int

const (
	// KindBadRequest is a caller error: missing target or unbindable params.
	KindBadRequest ErrorKind = iota + 1
	// KindUnavailable means the pool is absent.
	KindUnavailable
	// KindExecution is a driver or database failure.
	KindExecution
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnavailable:
		return "service_unavailable"
	case KindExecution:
		return "execution_error"
	default:
		return "unknown"
	}
}

// ProxyError is returned by every Proxy operation. Message is safe to show
// to callers; Detail carries the driver's text when there is one.
type ProxyError struct {
	Kind    ErrorKind
	Message string
	Detail  string
	Err     error
}

// Sentinels for errors.Is. They match any ProxyError of the same kind.
var (
	ErrBadRequest         = &ProxyError{Kind: KindBadRequest}
	ErrServiceUnavailable = &ProxyError{Kind: KindUnavailable}
	ErrExecution          = &ProxyError{Kind: KindExecution}
)

func (e *ProxyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *ProxyError) Unwrap() error { return e.Err }

// Is matches a sentinel ProxyError (one with no Message) by kind.
func (e *ProxyError) Is(target error) bool {
	t, ok := target.(*ProxyError)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind
}

func badRequest(msg string, err error) *ProxyError {
	return &ProxyError{Kind: KindBadRequest, Message: msg, Err: err}
}

func unavailable(msg string, err error) *ProxyError {
	return &ProxyError{Kind: KindUnavailable, Message: msg, Err: err}
}

func execution(msg string, err error) *ProxyError {
	pe := &ProxyError{Kind: KindExecution, Message: msg, Err: err}
	if err != nil {
		pe.Detail = err.Error()
	}
	return pe
}
