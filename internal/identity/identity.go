// Package identity canonicalizes the many surface forms of a WhatsApp sender
// identity. The WhatsApp bridge, the admin dashboard, and the analytics
// pipeline have historically keyed the same user three different ways:
//
//   - bare number:           "628123456789"
//   - transport JID:         "628123456789@s.whatsapp.net"
//   - analytics namespace:   "analytics_628123456789"
//
// A single canonical form is therefore not enough for lookups against
// previously persisted data; callers probe an ordered candidate list instead.
// The analytics namespace is deliberately NOT folded into the primary
// namespace: "analytics_X" and "X" are distinct identities that own distinct
// conversation threads.
//
// All functions here are pure.
package identity

import "strings"

const (
	// TransportSuffix is the WhatsApp JID suffix appended by the messaging
	// bridge to bare phone numbers.
	TransportSuffix = "@s.whatsapp.net"

	// AnalyticsPrefix marks the parallel namespace used by the analytics
	// pipeline so its threads never collide with the user-facing ones.
	AnalyticsPrefix = "analytics_"
)

// Candidates returns the ordered list of registry keys to probe for raw.
// Order encodes lookup priority:
//
//  1. the raw string exactly as supplied
//  2. raw with the transport suffix stripped (when present)
//  3. raw with the transport suffix appended (when absent)
//  4. the analytics-namespace form of each of the above
//
// Duplicates are removed while preserving first occurrence, so the result is
// safe to iterate with "return on first hit" semantics.
func Candidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	base := make([]string, 0, 3)
	base = append(base, raw)
	if stripped, ok := strings.CutSuffix(raw, TransportSuffix); ok {
		base = append(base, stripped)
	} else {
		base = append(base, raw+TransportSuffix)
	}

	out := make([]string, 0, len(base)*2)
	seen := make(map[string]struct{}, len(base)*2)
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, b := range base {
		add(b)
	}
	for _, b := range base {
		add(Analytics(b))
	}
	return out
}

// Analytics maps an identity into the analytics namespace. Applying it to an
// identity already carrying the prefix is a no-op.
func Analytics(id string) string {
	if strings.HasPrefix(id, AnalyticsPrefix) {
		return id
	}
	return AnalyticsPrefix + id
}

// IsAnalytics reports whether id belongs to the analytics namespace.
func IsAnalytics(id string) bool {
	return strings.HasPrefix(id, AnalyticsPrefix)
}

// Bare strips the transport suffix and analytics prefix, returning the
// underlying number. Used for display and for erasure requests that must
// cover every surface form.
func Bare(id string) string {
	id = strings.TrimPrefix(strings.TrimSpace(id), AnalyticsPrefix)
	id, _ = strings.CutSuffix(id, TransportSuffix)
	return id
}

// ErasureKeys returns every surface form under which data for id may have
// been persisted, across both namespaces. Order is not significant.
func ErasureKeys(id string) []string {
	bare := Bare(id)
	if bare == "" {
		return nil
	}
	forms := []string{
		bare,
		bare + TransportSuffix,
		AnalyticsPrefix + bare,
		AnalyticsPrefix + bare + TransportSuffix,
	}
	return forms
}
