package openapi

import "strings"

// TypeMapping maps SQL Server parameter and column types to OpenAPI type/format pairs.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean
	Format string // OpenAPI format: int32, int64, float, double, date, date-time, uuid, byte
}

// sqlServerTypes maps SQL Server types to OpenAPI types (case-insensitive lookup).
var sqlServerTypes = map[string]TypeMapping{
	// Integer types
	"int":      {"integer", "int32"},
	"bigint":   {"integer", "int64"},
	"smallint": {"integer", "int32"},
	"tinyint":  {"integer", "int32"},

	// Float types
	"float":      {"number", "double"},
	"real":       {"number", "float"},
	"decimal":    {"number", "double"},
	"numeric":    {"number", "double"},
	"money":      {"number", "double"},
	"smallmoney": {"number", "double"},

	// String types
	"varchar":  {"string", ""},
	"char":     {"string", ""},
	"text":     {"string", ""},
	"nvarchar": {"string", ""},
	"nchar":    {"string", ""},
	"ntext":    {"string", ""},
	"xml":      {"string", ""},
	"sysname":  {"string", ""},

	// Date/time types
	"date":           {"string", "date"},
	"datetime":       {"string", "date-time"},
	"datetime2":      {"string", "date-time"},
	"smalldatetime":  {"string", "date-time"},
	"datetimeoffset": {"string", "date-time"},
	"time":           {"string", "time"},

	// Boolean
	"bit": {"boolean", ""},

	// Binary values are relayed as strings
	"binary":    {"string", "byte"},
	"varbinary": {"string", "byte"},
	"image":     {"string", "byte"},

	"uniqueidentifier": {"string", "uuid"},
}

// MapDBType converts a SQL Server type to an OpenAPI type mapping.
// Falls back to {"string", ""} for unknown types.
func MapDBType(dbType string) TypeMapping {
	normalized := strings.ToLower(strings.TrimSpace(dbType))

	// "nvarchar(50)" -> "nvarchar"
	if idx := strings.IndexByte(normalized, '('); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}

	if m, ok := sqlServerTypes[normalized]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}
