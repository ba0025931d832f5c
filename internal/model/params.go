package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Params is a flat mapping of parameter names to scalar values. Values are
// limited to string, int64, float64, bool, time.Time and nil.
type Params map[string]interface{}

// paramNameRegex matches the names a parameter may be bound under. A leading
// "@" is accepted and stripped by NormalizeParamName.
var paramNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_#$]*$`)

// ParamError describes a parameter mapping that cannot be bound.
type ParamError struct {
	Name   string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Name == "" {
		return "params " + e.Reason
	}
	return fmt.Sprintf("params.%s %s", e.Name, e.Reason)
}

// NormalizeParamName strips a single leading "@" so that callers may send
// either "year" or "@year".
func NormalizeParamName(name string) string {
	return strings.TrimPrefix(name, "@")
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks every name and value. It is used for parameter maps built
// in-process (report catalog, MCP tools) that did not pass through
// DecodeParams.
func (p Params) Validate() error {
	for _, name := range p.Names() {
		if !paramNameRegex.MatchString(NormalizeParamName(name)) {
			return &ParamError{Name: name, Reason: "is not a valid parameter name"}
		}
		if !IsScalar(p[name]) {
			return &ParamError{Name: name, Reason: "must be a scalar value (string, number, boolean, date or null)"}
		}
	}
	return nil
}

// IsScalar reports whether v may be bound as a single typed parameter.
func IsScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time:
		return true
	default:
		return false
	}
}

// DecodeParams parses the "params" member of a proxy request. An absent or
// null member yields an empty mapping. Nested objects and arrays are
// rejected before anything is bound. Integral JSON numbers decode as int64,
// all other numbers as float64.
func DecodeParams(raw json.RawMessage) (Params, error) {
	out := Params{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	if trimmed[0] != '{' {
		return nil, &ParamError{Reason: "must be an object mapping names to scalar values"}
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, &ParamError{Reason: "is not valid JSON: " + err.Error()}
	}

	for name, value := range values {
		key := NormalizeParamName(name)
		if !paramNameRegex.MatchString(key) {
			return nil, &ParamError{Name: name, Reason: "is not a valid parameter name"}
		}
		if _, dup := out[key]; dup {
			return nil, &ParamError{Name: name, Reason: "is given more than once"}
		}
		v, err := decodeScalar(value)
		if err != nil {
			return nil, &ParamError{Name: name, Reason: err.Error()}
		}
		out[key] = v
	}
	return out, nil
}

func decodeScalar(raw json.RawMessage) (interface{}, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("is empty")
	}
	switch raw[0] {
	case '{', '[':
		return nil, fmt.Errorf("must be a scalar value (string, number, boolean, date or null)")
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case 'n':
		return nil, nil
	default:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return nil, err
		}
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}
