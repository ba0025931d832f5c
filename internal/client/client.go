// Package client talks to a running woodsreport proxy over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/woodsintl/woodsreport/internal/model"
)

// DefaultTimeout bounds one API call.
const DefaultTimeout = 60 * time.Second

// APIError is a non-2xx answer from the proxy.
type APIError struct {
	Status  int
	Message string
	Details string
}

// Error joins the message and details the way the dashboard shows them.
func (e *APIError) Error() string {
	if e.Details != "" {
		return e.Message + " - " + e.Details
	}
	return e.Message
}

// Unavailable reports whether the proxy has no database pool.
func (e *APIError) Unavailable() bool {
	return e.Status == http.StatusServiceUnavailable
}

// Client is a proxy API client. It satisfies report.Executor and
// session.Executor.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

type execRequest struct {
	Procedure string       `json:"procedure"`
	Params    model.Params `json:"params"`
}

type queryRequest struct {
	Query  string       `json:"query"`
	Params model.Params `json:"params"`
}

// Execute runs a stored procedure through POST /api/exec.
func (c *Client) Execute(ctx context.Context, procedure string, params model.Params) (*model.ProxyResult, error) {
	if params == nil {
		params = model.Params{}
	}
	var out model.ProxyResult
	if err := c.do(ctx, http.MethodPost, "/api/exec", execRequest{Procedure: procedure, Params: params}, &out); err != nil {
		return nil, err
	}
	return normalize(&out), nil
}

// Query runs a parameterized batch through POST /api/query.
func (c *Client) Query(ctx context.Context, sqlText string, params model.Params) (*model.ProxyResult, error) {
	if params == nil {
		params = model.Params{}
	}
	var out model.ProxyResult
	if err := c.do(ctx, http.MethodPost, "/api/query", queryRequest{Query: sqlText, Params: params}, &out); err != nil {
		return nil, err
	}
	return normalize(&out), nil
}

// Store returns the pool status from GET /api/store.
func (c *Client) Store(ctx context.Context) (*model.StoreStatus, error) {
	var out model.StoreStatus
	if err := c.do(ctx, http.MethodGet, "/api/store", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clients returns the distinct client names from GET /api/clients.
func (c *Client) Clients(ctx context.Context) ([]model.Client, error) {
	out := []model.Client{}
	if err := c.do(ctx, http.MethodGet, "/api/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Dashboard returns the table counts from GET /api/dashboard.
func (c *Client) Dashboard(ctx context.Context) (*model.DashboardResponse, error) {
	var out model.DashboardResponse
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env model.ErrorResponse
	if err := json.Unmarshal(data, &env); err == nil && env.Error != "" {
		apiErr.Message = env.Error
		apiErr.Details = env.Details
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	apiErr.Details = strings.TrimSpace(string(data))
	return apiErr
}

func normalize(r *model.ProxyResult) *model.ProxyResult {
	if r.Recordsets == nil {
		r.Recordsets = []model.Recordset{}
	}
	if r.RowsAffected == nil {
		r.RowsAffected = []int64{}
	}
	return r
}
