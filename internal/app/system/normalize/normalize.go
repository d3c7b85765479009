// Package normalize holds the canonical forms of user-supplied strings
// before they are stored or used in queries.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a role.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases an initiative or participation status.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Category trims and lowercases an initiative category. "all" means no
// filter and becomes "".
func Category(s string) string {
	c := strings.ToLower(strings.TrimSpace(s))
	if c == "all" {
		return ""
	}
	return c
}

// Gender maps free-form gender input onto the stored vocabulary. Unknown
// values are returned lowercased for the caller to reject.
func Gender(s string) string {
	g := strings.ToLower(strings.TrimSpace(s))
	switch g {
	case "prefer-not-to-say", "prefer_not_to_say":
		return "prefer not to say"
	}
	return g
}

// QueryParam trims a query parameter. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
