package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/woodsintl/woodsreport/internal/report"
)

// Info holds the inputs needed to describe one proxy deployment.
type Info struct {
	Title   string
	Store   string
	BaseURL string
	Version string
}

// Generate builds an OpenAPI 3.1 document for the proxy API. Each catalog
// report with a procedure contributes a parameter schema that callers can
// send as the params of POST /api/exec.
func Generate(info Info, catalog *report.Catalog) *openapi3.T {
	title := info.Title
	if title == "" {
		title = fmt.Sprintf("%s API", info.Store)
	}
	version := info.Version
	if version == "" {
		version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       title,
			Description: fmt.Sprintf("Stored procedure and query proxy for the %s database.", info.Store),
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: info.BaseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()

	addSharedSchemas(doc)

	doc.Paths.Set("/api/store", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"store"},
			Summary:     "Report the pool status",
			OperationID: "getStore",
			Responses:   newResponses("200", "Pool status", ref("StoreStatus")),
		},
	})
	doc.Paths.Set("/api/exec", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"proxy"},
			Summary:     "Execute a stored procedure",
			Description: "Runs the procedure with named parameters and relays every recordset.",
			OperationID: "execProcedure",
			RequestBody: jsonBody("Procedure and parameters", ref("ExecRequest")),
			Responses:   newResponses("200", "Procedure result", ref("ProxyResult"), "400", "413", "500", "503"),
		},
	})
	doc.Paths.Set("/api/query", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"proxy"},
			Summary:     "Execute a raw query",
			OperationID: "runQuery",
			RequestBody: jsonBody("Query text and parameters", ref("QueryRequest")),
			Responses:   newResponses("200", "Query result", ref("ProxyResult"), "400", "413", "500", "503"),
		},
	})
	doc.Paths.Set("/api/dashboard", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"store"},
			Summary:     "Dashboard container counts",
			OperationID: "getDashboard",
			Responses:   newResponses("200", "Dashboard data", ref("DashboardResponse"), "500", "503"),
		},
	})
	doc.Paths.Set("/api/clients", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"store"},
			Summary:     "List distinct clients",
			OperationID: "listClients",
			Responses: newResponses("200", "Clients", &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: ref("Client")},
			}, "500", "503"),
		},
	})

	if catalog != nil {
		for _, r := range catalog.List("") {
			if r.Procedure == "" {
				continue
			}
			doc.Components.Schemas[reportSchemaName(r.Key)] = reportParamsSchema(r)
		}
	}

	return doc
}

func addSharedSchemas(doc *openapi3.T) {
	str := func() *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	}
	row := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(true)},
		},
	}
	recordset := &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: row},
	}
	params := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "Flat mapping of parameter names to string, number, boolean or null values.",
			AdditionalProperties: openapi3.AdditionalProperties{
				Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"string", "number", "boolean", "null"},
				}},
			},
		},
	}

	s := doc.Components.Schemas
	s["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"error"},
			Properties: openapi3.Schemas{
				"error":   str(),
				"details": str(),
			},
		},
	}
	s["Params"] = params
	s["ExecRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"procedure"},
			Properties: openapi3.Schemas{
				"procedure": str(),
				"params":    ref("Params"),
			},
		},
	}
	s["QueryRequest"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"query"},
			Properties: openapi3.Schemas{
				"query":  str(),
				"params": ref("Params"),
			},
		},
	}
	s["ProxyResult"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"recordsets", "rowsAffected"},
			Properties: openapi3.Schemas{
				"recordsets": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: recordset},
				},
				"rowsAffected": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
					},
				},
			},
		},
	}
	s["StoreStatus"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"store":    str(),
				"database": str(),
				"status": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"string"},
					Enum: []interface{}{"connected", "disconnected"},
				}},
			},
		},
	}
	s["DashboardResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"store":    str(),
				"database": str(),
				"data":     recordset,
			},
		},
	}
	s["Client"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: openapi3.Schemas{"client_name": str()},
		},
	}
}

// reportParamsSchema describes the params a report binds when run through
// POST /api/exec.
func reportParamsSchema(r report.Report) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	var required []string
	for _, p := range r.Params() {
		s := columnTypeSchema(MapDBType(p.SQLType))
		if s.Format == "date" {
			s.Description = "YYYY-MM-DD, or an empty string when unset"
		}
		props[p.Name] = &openapi3.SchemaRef{Value: s}
		required = append(required, p.Name)
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Title:       r.Title,
			Description: fmt.Sprintf("Parameters of %s (report %s).", r.Procedure, r.Key),
			Properties:  props,
			Required:    required,
		},
	}
}

func columnTypeSchema(m TypeMapping) *openapi3.Schema {
	s := &openapi3.Schema{
		Type: &openapi3.Types{m.Type},
	}
	if m.Format != "" {
		s.Format = m.Format
	}
	return s
}

func jsonBody(description string, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

var errorDescriptions = map[string]string{
	"400": "Bad request",
	"413": "Request body too large",
	"500": "Execution error",
	"503": "Database is not connected",
}

// newResponses builds the success response plus one ErrorResponse entry per
// error status code.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, errorCodes ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := ref("ErrorResponse")
	for _, code := range errorCodes {
		desc := errorDescriptions[code]
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

// reportSchemaName turns "date_wise_grading" into "DateWiseGradingParams".
func reportSchemaName(key string) string {
	var b strings.Builder
	for _, part := range strings.Split(key, "_") {
		b.WriteString(capitalize(part))
	}
	b.WriteString("Params")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func boolPtr(b bool) *bool { return &b }
