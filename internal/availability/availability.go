// Package availability classifies catalog items as storefront-visible.
// Upstream availability data is free text entered by admins, so this is a
// substring classifier rather than an enum match.
package availability

import "strings"

// Available reports whether an item with the given availability status
// should be shown on the storefront. Statuses are tried in order and the
// first non-empty one wins; callers pass every alias field the backend may
// use (availability, availabilityStatus, availability_status, ...).
//
// An entirely empty status means the admin never filled the field in, and
// missing data must not hide inventory, so it counts as available.
func Available(statuses ...string) bool {
	for _, s := range statuses {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if strings.Contains(s, "not available") || strings.Contains(s, "unavailable") {
			return false
		}
		return true
	}
	return true
}
