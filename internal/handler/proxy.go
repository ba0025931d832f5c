package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/service"
)

// ExecRequest is the body of POST /api/exec.
type ExecRequest struct {
	Procedure string          `json:"procedure"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query  string          `json:"query"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ProxyHandler exposes the proxy service over HTTP.
type ProxyHandler struct {
	proxy *service.Proxy
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(proxy *service.Proxy) *ProxyHandler {
	return &ProxyHandler{proxy: proxy}
}

// Store reports the pool status. It always answers 200.
// GET /api/store
func (h *ProxyHandler) Store(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.proxy.Status())
}

// Exec runs a stored procedure.
// POST /api/exec
func (h *ProxyHandler) Exec(w http.ResponseWriter, r *http.Request) {
	var req ExecRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Procedure == "" {
		writeError(w, http.StatusBadRequest, "procedure is required")
		return
	}
	params, ok := decodeParams(w, req.Params)
	if !ok {
		return
	}

	res, err := h.proxy.Execute(r.Context(), req.Procedure, params)
	if err != nil {
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Query runs a parameterized SQL batch.
// POST /api/query
func (h *ProxyHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	params, ok := decodeParams(w, req.Params)
	if !ok {
		return
	}

	res, err := h.proxy.RunQuery(r.Context(), req.Query, params)
	if err != nil {
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Dashboard runs the table-count probe.
// GET /api/dashboard
func (h *ProxyHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	res, err := h.proxy.Dashboard(r.Context())
	if err != nil {
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Clients lists distinct client names.
// GET /api/clients
func (h *ProxyHandler) Clients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.proxy.Clients(r.Context())
	if err != nil {
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := readJSON(r, v); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func decodeParams(w http.ResponseWriter, raw json.RawMessage) (model.Params, bool) {
	params, err := model.DecodeParams(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return params, true
}
