package workflow

import (
	"regexp"
	"strings"
)

var (
	sqlFencedBlock  = regexp.MustCompile("(?s)```sql\\s*\\n(.*?)\\n```")
	genericFenced    = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```")
	trailingSelect   = regexp.MustCompile("(?is)(SELECT.*?;)")
	dangerousKeyword = regexp.MustCompile(`\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|GRANT|REVOKE|EXEC|EXECUTE|DECLARE|CURSOR)\b`)
)

// extractSQLFromResponse pulls a SQL statement out of an LLM response,
// preferring a ```sql fenced block, then any fenced block, then a
// trailing SELECT ...; match, falling back to the trimmed response.
func extractSQLFromResponse(response string) string {
	if m := sqlFencedBlock.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFenced.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := trailingSelect.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// validateSQLSafety enforces the read-only, soft-delete-aware allowlist:
// only SELECT, no DML/DDL keywords, and a mandatory reference to the
// deleted flag.
func validateSQLSafety(sql string) (bool, string) {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	if !strings.HasPrefix(upper, "SELECT") {
		return false, "Only SELECT queries are allowed"
	}

	if m := dangerousKeyword.FindString(upper); m != "" {
		return false, "Dangerous keyword detected: " + m
	}

	if !strings.Contains(upper, "DELETED") {
		return false, "Must include 'deleted = FALSE' condition"
	}

	return true, ""
}

// validateSQLSyntax performs a hand-rolled structural check in place of
// a full SQL parser dependency: the corpus carries no Go SQL-syntax
// parser, so this mirrors the original's coarse "is this a SELECT
// statement" gate rather than a grammar-level validation.
func validateSQLSyntax(sql string) (bool, string) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return false, "Empty or invalid SQL"
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return false, "Only SELECT statements allowed"
	}

	if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
		return false, "Syntax error: unbalanced parentheses"
	}

	return true, ""
}

// FormattedResults is the bounded view of QueryResults returned to
// callers, matching format_query_results.
type FormattedResults struct {
	Count      int              `json:"count"`
	Displayed  int              `json:"displayed"`
	Data       []map[string]any `json:"data"`
	Truncated  bool             `json:"truncated"`
	Message    string           `json:"message,omitempty"`
}

func formatQueryResults(results []map[string]any, limit int) FormattedResults {
	if len(results) == 0 {
		return FormattedResults{Count: 0, Data: []map[string]any{}, Message: "No results found"}
	}

	limited := results
	if len(results) > limit {
		limited = results[:limit]
	}

	return FormattedResults{
		Count:     len(results),
		Displayed: len(limited),
		Data:      limited,
		Truncated: len(results) > limit,
	}
}

var (
	sqlServiceLiteral   = regexp.MustCompile(`(?i)service\s*=\s*'([^']+)'`)
	sqlErrorTypeLiteral = regexp.MustCompile(`(?i)error_type\s*=\s*'([^']+)'`)
	sqlIntervalLiteral  = regexp.MustCompile(`(?i)INTERVAL\s*'(\d+\s*\w+)'`)
)

// extractFocusEntities scans the executed SQL for the literals the
// generator baked in (service, error_type, time interval) so the
// conversation store can carry them forward as the next turn's focus.
func extractFocusEntities(sql string) map[string]string {
	focus := map[string]string{}

	if m := sqlServiceLiteral.FindStringSubmatch(sql); m != nil {
		focus["service"] = m[1]
	}
	if m := sqlErrorTypeLiteral.FindStringSubmatch(sql); m != nil {
		focus["error_type"] = m[1]
	}
	if m := sqlIntervalLiteral.FindStringSubmatch(sql); m != nil {
		focus["time_range"] = m[1]
	}

	return focus
}
