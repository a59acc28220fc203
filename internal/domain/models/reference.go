package models

import "strings"

// Reference is a loose link to another record: an optional id plus the
// denormalized name that was typed when the link was made.
type Reference struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// IsZero reports whether the reference carries neither id nor name.
func (r Reference) IsZero() bool {
	return strings.TrimSpace(r.ID) == "" && strings.TrimSpace(r.Name) == ""
}

// NormalizeName trims and lower-cases a name for comparisons.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameName compares two names case-insensitively after trimming.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
