package security

import (
	"regexp"
	"strings"
)

var (
	filePathPattern = regexp.MustCompile(`File "[^"]*"`)
	dbURLPattern    = regexp.MustCompile(`postgresql://[^@]*@`)
	queryKeyPattern = regexp.MustCompile(`(?i)(token|api_key)=[^&\s]+`)
)

// SanitizeErrorMessage strips file paths and database credentials from an
// error message and keeps only its first line, matching the original's
// sanitize_error_message used before any error reaches a client.
func SanitizeErrorMessage(msg string) string {
	msg = filePathPattern.ReplaceAllString(msg, `File "[REDACTED]"`)
	msg = dbURLPattern.ReplaceAllString(msg, "postgresql://[REDACTED]@")
	msg = queryKeyPattern.ReplaceAllString(msg, "$1=[REDACTED]")

	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		msg = msg[:idx]
	}
	return msg
}

// CollapseStackTrace reduces a multi-line stack trace to its first line,
// for inclusion in sanitized error responses.
func CollapseStackTrace(trace string) string {
	if idx := strings.IndexByte(trace, '\n'); idx != -1 {
		return trace[:idx]
	}
	return trace
}
