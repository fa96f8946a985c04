package sqlcheck

import "strings"

// StripComments removes -- line comments and /* */ block comments outside
// quoted text. Each comment is replaced by a single space, or by its newline
// for line comments, so the surrounding tokens stay separated. An
// unterminated block comment is kept so validation still rejects it.
func StripComments(sqlText string) string {
	var b strings.Builder
	b.Grow(len(sqlText))
	for i := 0; i < len(sqlText); {
		ch := sqlText[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := closingQuote(sqlText, i)
			b.WriteString(sqlText[i:end])
			i = end
		case strings.HasPrefix(sqlText[i:], "--"):
			end := strings.IndexByte(sqlText[i:], '\n')
			if end < 0 {
				b.WriteByte(' ')
				i = len(sqlText)
				continue
			}
			b.WriteByte('\n')
			i += end + 1
		case strings.HasPrefix(sqlText[i:], "/*"):
			end := strings.Index(sqlText[i+2:], "*/")
			if end < 0 {
				b.WriteString(sqlText[i:])
				i = len(sqlText)
				continue
			}
			b.WriteByte(' ')
			i += end + 4
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

// closingQuote returns the index just past the quoted run starting at start,
// honouring doubled quotes. Unterminated runs extend to the end of input.
func closingQuote(text string, start int) int {
	quote := text[start]
	for i := start + 1; i < len(text); i++ {
		if text[i] != quote {
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(text)
}
