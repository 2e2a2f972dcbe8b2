package wizard

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a form field to the message shown next to it.
// An empty map means the step is valid.
type FieldErrors map[string]string

// Valid reports whether no field failed
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Add records a message for field, keeping the first one
func (e FieldErrors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Fields returns the failing field names sorted
func (e FieldErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range e.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return strings.Join(parts, "; ")
}

func indexed(list string, i int, field string) string {
	if field == "" {
		return fmt.Sprintf("%s[%d]", list, i)
	}
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
