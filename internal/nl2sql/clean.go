package nl2sql

import (
	"regexp"
	"strings"

	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
)

var (
	doubleQuotedComparison = regexp.MustCompile(`(?i)(\s*(?:=|<>|!=|LIKE|ILIKE|IN)\s*\(?\s*)"([^"]+)"`)
	commentaryMarkers      = []string{"explicação:", "explicacao:", "explanation:", "resultado:", "result:", "esta consulta", "this query"}
)

// CleanSQL turns a raw model reply into a single-line SQL statement: markdown
// fences, SQL comments and trailing commentary are dropped, double-quoted
// string literals in comparisons become single-quoted, and trailing
// semicolons are removed.
func CleanSQL(raw string) string {
	text := sqlcheck.StripComments(stripMarkdownSQL(raw))

	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		if hasCommentary(line) {
			break
		}
		lines = append(lines, line)
	}

	sql := strings.Join(lines, " ")
	sql = doubleQuotedComparison.ReplaceAllString(sql, "$1'$2'")
	return stripTrailingSemicolons(sql)
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if start := strings.Index(trimmed, "```"); start >= 0 {
		body := trimmed[start+3:]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		body = strings.TrimPrefix(body, "sql")
		body = strings.TrimPrefix(body, "SQL")
		return strings.TrimSpace(body)
	}
	return trimmed
}

func hasCommentary(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range commentaryMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
