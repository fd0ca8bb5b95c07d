package mirror

import (
	"fmt"
	"regexp"
	"strings"
)

var filterToken = regexp.MustCompile(`^[A-Z]*$`)

// Filter selects rows from a Store. Empty fields match everything and a
// Limit <= 0 means unbounded.
type Filter struct {
	Status  string
	Species string
	Limit   int
}

// Normalize uppercases and trims the text fields.
func (f Filter) Normalize() Filter {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.Species = strings.ToUpper(strings.TrimSpace(f.Species))
	return f
}

// Validate rejects values that cannot be a status or species token.
func (f Filter) Validate() error {
	if !filterToken.MatchString(f.Status) {
		return fmt.Errorf("%w: status %q", ErrInvalidFilter, f.Status)
	}
	if !filterToken.MatchString(f.Species) {
		return fmt.Errorf("%w: species %q", ErrInvalidFilter, f.Species)
	}
	return nil
}

// Matches reports whether the record satisfies the status and species fields.
func (f Filter) Matches(r Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Species != "" && r.Species != f.Species {
		return false
	}
	return true
}

// Field names a column that DeleteWhere may target.
type Field string

// Fields accepted by DeleteWhere.
const (
	FieldStatus  Field = "status"
	FieldSpecies Field = "species"
)

// Valid reports whether the field belongs to the closed set.
func (f Field) Valid() bool {
	switch f {
	case FieldStatus, FieldSpecies:
		return true
	default:
		return false
	}
}

// Value returns the record's value for the field.
func (f Field) Value(r Record) string {
	switch f {
	case FieldStatus:
		return r.Status
	case FieldSpecies:
		return r.Species
	default:
		return ""
	}
}
