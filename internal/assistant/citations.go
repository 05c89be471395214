// Package assistant – reply cleanup.
//
// Completed runs return text annotated with inline citation markers of the
// form 【12:34†source.pdf】 pointing into the assistant's attached files. The
// markers mean nothing to a WhatsApp user, so they are stripped before a reply
// leaves this layer.
package assistant

import "regexp"

// citationRE matches one citation marker: opening delimiter, two numeric
// fields separated by a colon, a dagger, a free-form label, closing delimiter.
var citationRE = regexp.MustCompile(`【\d+:\d+†[^】]*】`)

// StripCitations removes every citation marker from s. The operation is pure,
// total (malformed or unmatched text passes through unchanged), and
// idempotent: stripping already-clean text is a no-op.
func StripCitations(s string) string {
	if s == "" {
		return s
	}
	return citationRE.ReplaceAllString(s, "")
}
