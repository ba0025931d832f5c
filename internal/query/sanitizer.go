// Package query validates the pieces of a proxy request that end up in
// command text. Parameter values never do: they are always bound as named
// parameters by the connector.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// maxIdentifierLen is SQL Server's sysname length.
const maxIdentifierLen = 128

// identifierRegex validates a regular (unquoted) SQL Server identifier.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_#@][A-Za-z0-9_#@$]*$`)

// ValidateIdentifier ensures a single unquoted or bracket-quoted identifier is
// safe to appear as command text.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if strings.HasPrefix(name, "[") {
		return validateQuoted(name)
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier too long (max %d chars): %q", maxIdentifierLen, name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [A-Za-z_#@][A-Za-z0-9_#@$]*", name)
	}
	return nil
}

// validateQuoted accepts [name] where name has no closing bracket, no
// control characters and fits in sysname.
func validateQuoted(name string) error {
	if len(name) < 3 || !strings.HasSuffix(name, "]") {
		return fmt.Errorf("invalid quoted identifier %q", name)
	}
	inner := name[1 : len(name)-1]
	if len(inner) > maxIdentifierLen {
		return fmt.Errorf("identifier too long (max %d chars): %q", maxIdentifierLen, name)
	}
	for _, r := range inner {
		if r == ']' || r == '[' || r < 0x20 {
			return fmt.Errorf("invalid character in quoted identifier %q", name)
		}
	}
	return nil
}

// ValidateProcedureName accepts a procedure reference of one to four
// dot-separated parts (server.database.schema.procedure), each a regular or
// bracket-quoted identifier. Whitespace outside brackets, statement
// separators and comments are rejected so that the name is always executed
// as a remote procedure call and never as a batch.
func ValidateProcedureName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("procedure name cannot be empty")
	}
	parts, err := splitQualified(name)
	if err != nil {
		return err
	}
	if len(parts) > 4 {
		return fmt.Errorf("procedure name %q has too many parts", name)
	}
	for _, p := range parts {
		if err := ValidateIdentifier(p); err != nil {
			return fmt.Errorf("invalid procedure name %q: %w", name, err)
		}
	}
	return nil
}

// splitQualified splits a dotted name, keeping dots inside brackets.
func splitQualified(name string) ([]string, error) {
	var (
		parts   []string
		current strings.Builder
		inQuote bool
	)
	for _, r := range name {
		switch {
		case r == '[' && !inQuote:
			inQuote = true
			current.WriteRune(r)
		case r == ']' && inQuote:
			inQuote = false
			current.WriteRune(r)
		case r == '.' && !inQuote:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated bracket in procedure name %q", name)
	}
	parts = append(parts, current.String())
	return parts, nil
}
