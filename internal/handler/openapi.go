package handler

import (
	"fmt"
	"net/http"

	"github.com/woodsintl/woodsreport/internal/openapi"
	"github.com/woodsintl/woodsreport/internal/report"
)

// OpenAPIHandler serves the OpenAPI 3.1 document of the proxy API.
type OpenAPIHandler struct {
	info    openapi.Info
	catalog *report.Catalog
}

// NewOpenAPIHandler creates a new OpenAPIHandler. When info.BaseURL is empty
// the server URL is derived from each request.
func NewOpenAPIHandler(info openapi.Info, catalog *report.Catalog) *OpenAPIHandler {
	return &OpenAPIHandler{info: info, catalog: catalog}
}

// ServeSpec returns the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	info := h.info
	if info.BaseURL == "" {
		info.BaseURL = requestBaseURL(r)
	}
	writeJSON(w, http.StatusOK, openapi.Generate(info, h.catalog))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
