// Package validate holds the account-field rules shared by the engine and the
// HTTP layer: email syntax and the display-name policy.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[A-Za-z\s]+$`)
)

const (
	MsgEmailInvalid    = "Invalid email format"
	MsgNameRequired    = "Name is required"
	MsgNameCharacters  = "Name can only contain letters and spaces"
	MsgNameCapitalized = "Name must be either all lowercase (e.g., john doe) or properly capitalized (e.g., John Doe)"
)

// Email reports whether s looks like an address: something@something.tld
// with no whitespace.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Name returns every rule the display name violates. An empty result means
// the name is acceptable.
func Name(name string) []string {
	if strings.TrimSpace(name) == "" {
		return []string{MsgNameRequired}
	}
	if !namePattern.MatchString(name) {
		return []string{MsgNameCharacters}
	}

	words := strings.Fields(name)
	allLower, allCapitalized := true, true
	for _, w := range words {
		if w != strings.ToLower(w) {
			allLower = false
		}
		if w != capitalize(w) {
			allCapitalized = false
		}
	}
	if !allLower && !allCapitalized {
		return []string{MsgNameCapitalized}
	}

	return nil
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}
