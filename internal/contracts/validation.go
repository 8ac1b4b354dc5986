package contracts

import (
	"regexp"
	"sort"
	"strings"
)

const (
	FieldTitle   = "title"
	FieldEmail   = "email"
	FieldContent = "content"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address has the local@domain.tld shape.
func ValidEmail(address string) bool {
	return address != "" && emailPattern.MatchString(address)
}

// EmailLocalPart returns the part of an address before the @.
func EmailLocalPart(address string) string {
	local, _, found := strings.Cut(address, "@")
	if !found {
		return address
	}
	return local
}

// ValidationError carries field-level messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

// Add records a message for the named field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Has reports whether the named field failed.
func (e *ValidationError) Has(field string) bool {
	if e == nil {
		return false
	}
	_, ok := e.Fields[field]
	return ok
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return "contracts: validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "contracts: validation failed: " + strings.Join(names, ", ")
}
