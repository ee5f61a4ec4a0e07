package membership

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a field name (or symbolic code such as
// "organization_max") to a human-readable message. Returned, not
// thrown, from create and update; multiple errors may co-occur.
type FieldErrors map[string]string

// NewFieldErrors returns an empty error map.
func NewFieldErrors() FieldErrors {
	return make(FieldErrors)
}

// Add records a message for a field, keeping the first message when a
// field already has one.
func (e FieldErrors) Add(field, message string) {
	if _, ok := e[field]; !ok {
		e[field] = message
	}
}

// HasErrors reports whether any error was recorded.
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// Error implements the error interface.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s %s", f, e[f])
	}
	return sb.String()
}
