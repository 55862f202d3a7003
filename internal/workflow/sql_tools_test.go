package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSQLFromResponsePrefersSQLFence(t *testing.T) {
	resp := "Here you go:\n```sql\nSELECT 1;\n```\nDone."
	assert.Equal(t, "SELECT 1;", extractSQLFromResponse(resp))
}

func TestExtractSQLFromResponseFallsBackToGenericFence(t *testing.T) {
	resp := "```\nSELECT 2;\n```"
	assert.Equal(t, "SELECT 2;", extractSQLFromResponse(resp))
}

func TestExtractSQLFromResponseFallsBackToTrailingSelect(t *testing.T) {
	resp := "The query is SELECT 3 FROM logs;"
	assert.Equal(t, "SELECT 3 FROM logs;", extractSQLFromResponse(resp))
}

func TestExtractSQLFromResponseFallsBackToRawTrim(t *testing.T) {
	resp := "  not sql at all  "
	assert.Equal(t, "not sql at all", extractSQLFromResponse(resp))
}

func TestValidateSQLSafetyRejectsNonSelect(t *testing.T) {
	ok, reason := validateSQLSafety("UPDATE logs SET deleted = TRUE")
	assert.False(t, ok)
	assert.Contains(t, reason, "Only SELECT")
}

func TestValidateSQLSafetyRejectsDangerousKeyword(t *testing.T) {
	ok, reason := validateSQLSafety("SELECT * FROM logs; DROP TABLE logs; -- deleted = FALSE")
	assert.False(t, ok)
	assert.Contains(t, reason, "DROP")
}

func TestValidateSQLSafetyRequiresDeletedFilter(t *testing.T) {
	ok, reason := validateSQLSafety("SELECT * FROM logs")
	assert.False(t, ok)
	assert.Contains(t, reason, "deleted")
}

func TestValidateSQLSafetyAcceptsWellFormedQuery(t *testing.T) {
	ok, _ := validateSQLSafety("SELECT * FROM logs WHERE deleted = FALSE")
	assert.True(t, ok)
}

func TestValidateSQLSyntaxRejectsEmpty(t *testing.T) {
	ok, reason := validateSQLSyntax("   ")
	assert.False(t, ok)
	assert.Contains(t, reason, "Empty")
}

func TestValidateSQLSyntaxRejectsUnbalancedParens(t *testing.T) {
	ok, _ := validateSQLSyntax("SELECT COUNT(* FROM logs")
	assert.False(t, ok)
}

func TestFormatQueryResultsEmpty(t *testing.T) {
	r := formatQueryResults(nil, 10)
	assert.Equal(t, 0, r.Count)
	assert.Equal(t, "No results found", r.Message)
}

func TestFormatQueryResultsTruncates(t *testing.T) {
	rows := []map[string]any{{"a": 1}, {"a": 2}, {"a": 3}}
	r := formatQueryResults(rows, 2)
	assert.Equal(t, 3, r.Count)
	assert.Equal(t, 2, r.Displayed)
	assert.True(t, r.Truncated)
}

func TestExtractFocusEntities(t *testing.T) {
	sql := "SELECT * FROM logs WHERE service = 'payment-api' AND error_type = 'Timeout' AND created_at > NOW() - INTERVAL '1 hour'"
	focus := extractFocusEntities(sql)
	assert.Equal(t, "payment-api", focus["service"])
	assert.Equal(t, "Timeout", focus["error_type"])
	assert.Equal(t, "1 hour", focus["time_range"])
}
