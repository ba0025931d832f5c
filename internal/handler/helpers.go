package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/service"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the flat error envelope. details is omitted when empty.
func writeError(w http.ResponseWriter, code int, message string, details ...string) {
	resp := model.ErrorResponse{Error: message}
	if len(details) > 0 {
		resp.Details = details[0]
	}
	writeJSON(w, code, resp)
}

// writeProxyError converts a service error into its HTTP status and
// envelope. Anything that is not a *service.ProxyError is treated as an
// execution failure without leaking its text.
func writeProxyError(w http.ResponseWriter, err error) {
	var pe *service.ProxyError
	if !errors.As(err, &pe) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeError(w, statusForKind(pe.Kind), pe.Message, pe.Detail)
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errBodyTooLarge is returned by readJSON when the body exceeds the limit
// installed by the server.
var errBodyTooLarge = errors.New("request body too large")

// readJSON decodes the request body as JSON into v. An empty body leaves v
// untouched. The body is closed after decoding regardless of success or
// failure.
func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return err
}
