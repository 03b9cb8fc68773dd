package model

import "strings"

// Lead is a contact eligible for a similar-listings campaign. ListingCode is
// the digits-only product code extracted from the marketing field; it may be
// empty when the lead has no usable code.
type Lead struct {
	Email       string
	Name        string
	Phone       string
	ListingCode string
}

// FirstName returns the first word of the lead's name, or "Cliente" when the
// name is missing.
func (l Lead) FirstName() string {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return "Cliente"
	}
	first, _, _ := strings.Cut(name, " ")
	return first
}

// LastName returns everything after the first word of the lead's name.
func (l Lead) LastName() string {
	name := strings.TrimSpace(l.Name)
	_, rest, ok := strings.Cut(name, " ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}
