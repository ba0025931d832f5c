package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/service"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// optionalString extracts an optional string argument from the tool request.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// optionalInt extracts an optional integer argument from the tool request.
func optionalInt(request mcp.CallToolRequest, key string, defaultVal int) int {
	return request.GetInt(key, defaultVal)
}

// paramsArg converts the "params" object of a tool call into proxy
// parameters. JSON numbers without a fractional part bind as int64, the
// same as over HTTP. Nested values are left for the proxy to reject.
func paramsArg(request mcp.CallToolRequest) (model.Params, error) {
	args := request.GetArguments()
	if args == nil {
		return model.Params{}, nil
	}
	raw, ok := args["params"]
	if !ok || raw == nil {
		return model.Params{}, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.New("params must be an object of name/value pairs")
	}

	out := make(model.Params, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			v = int64(f)
		}
		out[k] = v
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the model so it can self-correct; they do not end the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// proxyError renders a proxy failure the way the HTTP API would word it.
func proxyError(err error) (*mcp.CallToolResult, error) {
	var pe *service.ProxyError
	if errors.As(err, &pe) {
		if pe.Detail != "" {
			return toolError("%s - %s", pe.Message, pe.Detail)
		}
		return toolError("%s", pe.Message)
	}
	return toolError("%v", err)
}
