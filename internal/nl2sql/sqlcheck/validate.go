// Package sqlcheck decides whether a SQL candidate is safe and plausible to run
// against a schema. It is a lexical-structural checker: statements are
// tokenized and references are resolved against the schema without building a
// full parse tree, so type errors and per-subquery scoping are not detected.
package sqlcheck

import (
	"fmt"
	"strings"

	"github.com/uniquery/uniquery/internal/schema"
)

const MaxStatementLength = 4000

type Reason string

const (
	ReasonEmpty         Reason = "empty_statement"
	ReasonMalformed     Reason = "malformed_clause"
	ReasonUnknownTable  Reason = "unknown_table"
	ReasonUnknownColumn Reason = "unknown_column"
	ReasonDisallowed    Reason = "disallowed_statement"
)

type Violation struct {
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	if v.Detail == "" {
		return string(v.Reason)
	}
	return string(v.Reason) + ": " + v.Detail
}

type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Reason returns the reason of the first violation, or "" when valid.
func (r Result) Reason() Reason {
	if len(r.Violations) == 0 {
		return ""
	}
	return r.Violations[0].Reason
}

func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &RejectedError{Violations: r.Violations}
}

type RejectedError struct {
	Violations []Violation
}

func (e *RejectedError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		parts = append(parts, violation.String())
	}
	return "sql rejected: " + strings.Join(parts, "; ")
}

// Validate runs the checks in order and stops at the first stage that
// reports violations: emptiness, statement structure, table references,
// column references, disallowed keywords.
func Validate(sql string, desc schema.Description) Result {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return reject(Violation{Reason: ReasonEmpty, Detail: "statement is empty"})
	}

	tokens, violations := checkStructure(trimmed)
	if len(violations) > 0 {
		return reject(violations...)
	}

	refs := resolve(tokens, desc)
	if violations := refs.tableViolations(); len(violations) > 0 {
		return reject(violations...)
	}
	if violations := refs.columnViolations(); len(violations) > 0 {
		return reject(violations...)
	}
	if violations := disallowed(tokens); len(violations) > 0 {
		return reject(violations...)
	}
	return Result{Valid: true}
}

func reject(violations ...Violation) Result {
	return Result{Valid: false, Violations: violations}
}

func malformed(format string, args ...any) Violation {
	return Violation{Reason: ReasonMalformed, Detail: fmt.Sprintf(format, args...)}
}

func checkStructure(sql string) ([]token, []Violation) {
	if len(sql) > MaxStatementLength {
		return nil, []Violation{malformed("statement exceeds %d characters", MaxStatementLength)}
	}
	tokens, err := tokenize(sql)
	if err != nil {
		return nil, []Violation{malformed("%s", err.Error())}
	}
	if len(tokens) > 0 && tokens[len(tokens)-1].typ == tokenSemicolon {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return nil, []Violation{{Reason: ReasonEmpty, Detail: "statement has no tokens"}}
	}

	lead := tokens[0]
	for i := 0; lead.typ == tokenLParen && i+1 < len(tokens); i++ {
		lead = tokens[i+1]
	}
	if lead.typ == tokenKeyword && inSet(disallowedKeywords, lead.text) {
		return nil, []Violation{{Reason: ReasonDisallowed, Detail: "statement starts with " + strings.ToUpper(lead.text)}}
	}
	if !lead.isKeyword("select", "with") {
		return nil, []Violation{malformed("statement must start with SELECT or WITH, found %q", lead.text)}
	}

	for _, tok := range tokens {
		if tok.typ == tokenSemicolon {
			violations := []Violation{malformed("multiple statements are not allowed")}
			return nil, append(violations, disallowed(tokens)...)
		}
	}

	depth := 0
	for _, tok := range tokens {
		switch tok.typ {
		case tokenLParen:
			depth++
		case tokenRParen:
			depth--
			if depth < 0 {
				return nil, []Violation{malformed("unbalanced parentheses at %d", tok.pos)}
			}
		}
	}
	if depth != 0 {
		return nil, []Violation{malformed("unbalanced parentheses: %d left open", depth)}
	}

	last := tokens[len(tokens)-1]
	switch {
	case last.typ == tokenKeyword && inSet(danglingKeywords, last.text):
		return nil, []Violation{malformed("statement ends with %s", strings.ToUpper(last.text))}
	case last.typ == tokenOperator || last.typ == tokenComma || last.typ == tokenDot:
		return nil, []Violation{malformed("statement ends with %q", last.text)}
	}

	if violation, ok := checkAdjacency(tokens); !ok {
		return nil, []Violation{violation}
	}

	topLevelSelect := false
	depth = 0
	for i, tok := range tokens {
		switch tok.typ {
		case tokenLParen:
			depth++
		case tokenRParen:
			depth--
		}
		if !tok.isKeyword("select") {
			continue
		}
		if depth == 0 {
			topLevelSelect = true
		}
		next := tokens[i+1]
		if next.isKeyword("from") || next.typ == tokenRParen || next.typ == tokenComma {
			return nil, []Violation{malformed("empty select list at %d", tok.pos)}
		}
	}
	if lead.isKeyword("with") && !topLevelSelect {
		return nil, []Violation{malformed("WITH clause without a main SELECT")}
	}
	return tokens, nil
}

// checkAdjacency rejects token pairs no clause allows: GROUP or ORDER without
// BY, two binary operators or two connectives in a row, and a condition that
// starts or ends with a connective.
func checkAdjacency(tokens []token) (Violation, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		tok, next := tokens[i], tokens[i+1]
		switch {
		case tok.isKeyword("order") || (tok.isKeyword("group") && (i == 0 || !tokens[i-1].isKeyword("within"))):
			if !next.isKeyword("by") {
				return malformed("%s without BY at %d", strings.ToUpper(tok.text), tok.pos), false
			}
		case tok.isKeyword("and", "or"):
			if next.isKeyword("and", "or") || isBinaryOperator(next) {
				return malformed("%s followed by %q at %d", strings.ToUpper(tok.text), next.text, next.pos), false
			}
		case isBinaryOperator(tok) || tok.is(tokenOperator, "-") || tok.is(tokenOperator, "+"):
			if next.isKeyword("and", "or") || isBinaryOperator(next) {
				return malformed("operator %q followed by %q at %d", tok.text, next.text, next.pos), false
			}
		case tok.isKeyword("where", "having", "on"):
			if next.isKeyword("and", "or") || isBinaryOperator(next) {
				return malformed("%s followed by %q at %d", strings.ToUpper(tok.text), next.text, next.pos), false
			}
		}
	}
	return Violation{}, true
}

// isBinaryOperator excludes + and -, which may also be signs.
func isBinaryOperator(tok token) bool {
	return tok.typ == tokenOperator && tok.text != "-" && tok.text != "+"
}

func disallowed(tokens []token) []Violation {
	var violations []Violation
	seen := map[string]struct{}{}
	for _, tok := range tokens {
		if tok.typ != tokenKeyword || !inSet(disallowedKeywords, tok.text) {
			continue
		}
		if _, ok := seen[tok.text]; ok {
			continue
		}
		seen[tok.text] = struct{}{}
		violations = append(violations, Violation{Reason: ReasonDisallowed, Detail: strings.ToUpper(tok.text)})
	}
	return violations
}
