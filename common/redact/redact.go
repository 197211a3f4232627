// Package redact provides helpers for stripping sensitive values from log
// output and user-facing error text before it leaves the process boundary.
//
// The weather provider's upstream error messages are echoed into bot replies
// for debuggability; redaction makes sure an API key embedded in such a
// message (e.g. from a misconfigured request URL) never reaches an end user
// or a log line.
//
// Redaction is best-effort: it operates on string representations and relies
// on callers to pass the right set of sensitive terms.  It is NOT a substitute
// for keeping secrets out of error messages in the first place.
package redact

import (
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED].  Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
//
// Example:
//
//	safe := redact.String(providerErr.Error(), apiKey)
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}
