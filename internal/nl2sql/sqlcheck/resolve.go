package sqlcheck

import (
	"sort"

	"github.com/uniquery/uniquery/internal/schema"
)

// source is something a FROM or JOIN can name. Derived sources (CTEs and
// subqueries) expose columns that are only known through the inner select.
type source struct {
	table   string
	derived bool
}

type references struct {
	tokens []token
	desc   schema.Description

	sources map[string]source
	// aliases holds output aliases and CTE column names.
	aliases map[string]struct{}
	// names marks token positions that define a name rather than reference one.
	names map[int]struct{}

	unknownTables []string
}

func resolve(tokens []token, desc schema.Description) *references {
	r := &references{
		tokens:  tokens,
		desc:    desc,
		sources: map[string]source{},
		aliases: map[string]struct{}{},
		names:   map[int]struct{}{},
	}
	r.collectCTEs()
	r.scan()
	return r
}

func (r *references) collectCTEs() {
	tokens := r.tokens
	if len(tokens) == 0 || !tokens[0].isKeyword("with") {
		return
	}
	i := 1
	if i < len(tokens) && tokens[i].isKeyword("recursive") {
		i++
	}
	for i < len(tokens) && isName(tokens[i]) {
		r.sources[tokens[i].text] = source{derived: true}
		r.names[i] = struct{}{}
		i++
		if i < len(tokens) && tokens[i].typ == tokenLParen {
			end := matchParen(tokens, i)
			if end < 0 {
				return
			}
			for j := i + 1; j < end; j++ {
				if isName(tokens[j]) {
					r.aliases[tokens[j].text] = struct{}{}
					r.names[j] = struct{}{}
				}
			}
			i = end + 1
		}
		if i >= len(tokens) || !tokens[i].isKeyword("as") {
			return
		}
		i++
		for i < len(tokens) && tokens[i].isKeyword("not", "materialized") {
			i++
		}
		if i >= len(tokens) || tokens[i].typ != tokenLParen {
			return
		}
		end := matchParen(tokens, i)
		if end < 0 {
			return
		}
		i = end + 1
		if i >= len(tokens) || tokens[i].typ != tokenComma {
			return
		}
		i++
	}
}

func (r *references) scan() {
	tokens := r.tokens
	// calls tracks, per open parenthesis, whether it holds call arguments.
	var calls []bool
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.typ == tokenLParen:
			calls = append(calls, i > 0 && r.isCallee(i-1))
		case tok.typ == tokenRParen:
			if len(calls) > 0 {
				calls = calls[:len(calls)-1]
			}
		case tok.isKeyword("from"):
			if len(calls) > 0 && calls[len(calls)-1] {
				continue
			}
			r.sourceList(i+1, true)
		case tok.isKeyword("join"):
			r.sourceList(i+1, false)
		case tok.isKeyword("into"):
			if i+1 < len(tokens) && isName(tokens[i+1]) {
				r.names[i+1] = struct{}{}
			}
		case tok.isKeyword("extract"):
			r.skipExtractField(i + 1)
		case tok.isKeyword("as"):
			if i+1 < len(tokens) && isName(tokens[i+1]) && !r.isName(i+1) {
				r.aliases[tokens[i+1].text] = struct{}{}
				r.names[i+1] = struct{}{}
			}
		case isName(tok):
			if r.isImplicitAlias(i) {
				r.aliases[tok.text] = struct{}{}
				r.names[i] = struct{}{}
			}
		}
	}
}

// sourceList records the tables named after FROM (a comma list) or JOIN.
func (r *references) sourceList(start int, list bool) {
	tokens := r.tokens
	i := start
	for i < len(tokens) {
		for i < len(tokens) && tokens[i].isKeyword("lateral", "only") {
			i++
		}
		if i >= len(tokens) {
			return
		}
		switch {
		case tokens[i].typ == tokenLParen:
			end := matchParen(tokens, i)
			if end < 0 {
				return
			}
			alias, next := r.alias(end + 1)
			if alias != "" {
				r.sources[alias] = source{derived: true}
			}
			i = next
		case isName(tokens[i]):
			name := tokens[i].text
			r.names[i] = struct{}{}
			i++
			if i+1 < len(tokens) && tokens[i].typ == tokenDot && isName(tokens[i+1]) {
				name = tokens[i+1].text
				r.names[i+1] = struct{}{}
				i += 2
			}
			src, ok := r.lookupSource(name)
			if !ok {
				r.addUnknownTable(name)
			}
			r.sources[name] = src
			alias, next := r.alias(i)
			if alias != "" {
				r.sources[alias] = src
			}
			i = next
		default:
			return
		}
		if !list || i >= len(tokens) || tokens[i].typ != tokenComma {
			return
		}
		i++
	}
}

func (r *references) lookupSource(name string) (source, bool) {
	if src, ok := r.sources[name]; ok && src.derived {
		return src, true
	}
	if table, ok := r.desc.Table(name); ok {
		return source{table: table.Name}, true
	}
	return source{table: name}, false
}

func (r *references) addUnknownTable(name string) {
	for _, existing := range r.unknownTables {
		if existing == name {
			return
		}
	}
	r.unknownTables = append(r.unknownTables, name)
}

// alias reads an optional "AS name" or bare "name" at i.
func (r *references) alias(i int) (string, int) {
	tokens := r.tokens
	if i < len(tokens) && tokens[i].isKeyword("as") {
		if i+1 < len(tokens) && isName(tokens[i+1]) {
			r.names[i+1] = struct{}{}
			return tokens[i+1].text, i + 2
		}
		return "", i + 1
	}
	if i < len(tokens) && isName(tokens[i]) {
		r.names[i] = struct{}{}
		return tokens[i].text, i + 1
	}
	return "", i
}

// skipExtractField marks the field name in EXTRACT(field FROM expr).
func (r *references) skipExtractField(i int) {
	tokens := r.tokens
	if i >= len(tokens) || tokens[i].typ != tokenLParen {
		return
	}
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].isKeyword("from") || tokens[j].typ == tokenRParen {
			return
		}
		r.names[j] = struct{}{}
	}
}

func (r *references) isCallee(i int) bool {
	tok := r.tokens[i]
	if tok.typ == tokenKeyword {
		return inSet(calleeKeywords, tok.text)
	}
	return isName(tok) && !r.isName(i)
}

// isImplicitAlias reports an identifier that directly follows an expression
// without AS, such as "COUNT(*) total" or "student s".
func (r *references) isImplicitAlias(i int) bool {
	if i == 0 || r.isName(i) {
		return false
	}
	tokens := r.tokens
	if i+1 < len(tokens) {
		switch tokens[i+1].typ {
		case tokenDot, tokenLParen, tokenString:
			return false
		}
	}
	prev := tokens[i-1]
	switch prev.typ {
	case tokenIdent, tokenQuotedIdent, tokenRParen, tokenNumber, tokenString:
		return true
	case tokenKeyword:
		return prev.text == "end"
	}
	return false
}

func (r *references) isName(i int) bool {
	_, ok := r.names[i]
	return ok
}

func (r *references) tableViolations() []Violation {
	var violations []Violation
	for _, name := range r.unknownTables {
		violations = append(violations, Violation{Reason: ReasonUnknownTable, Detail: name})
	}
	tokens := r.tokens
	seen := map[string]struct{}{}
	for i := 0; i+1 < len(tokens); i++ {
		if !isName(tokens[i]) || r.isName(i) || tokens[i+1].typ != tokenDot {
			continue
		}
		qualifier := tokens[i].text
		if _, ok := r.sources[qualifier]; ok {
			continue
		}
		if _, ok := seen[qualifier]; ok {
			continue
		}
		seen[qualifier] = struct{}{}
		violations = append(violations, Violation{Reason: ReasonUnknownTable, Detail: qualifier + " is not referenced in FROM or JOIN"})
	}
	return violations
}

func (r *references) columnViolations() []Violation {
	var violations []Violation
	tokens := r.tokens
	tables := r.referencedTables()
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !isName(tok) || r.isName(i) {
			continue
		}
		var next token
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}
		switch next.typ {
		case tokenDot:
			if i+2 < len(tokens) && isName(tokens[i+2]) {
				src := r.sources[tok.text]
				if !src.derived && !r.desc.HasColumn(src.table, tokens[i+2].text) {
					violations = append(violations, Violation{Reason: ReasonUnknownColumn, Detail: tok.text + "." + tokens[i+2].text})
				}
			}
			i += 2
			continue
		case tokenLParen:
			if !inSet(knownFunctions, tok.text) {
				violations = append(violations, Violation{Reason: ReasonUnknownColumn, Detail: "unknown function " + tok.text})
			}
			continue
		case tokenString:
			// type literal such as DATE '2024-01-01'
			continue
		}
		if r.resolvesBare(tok.text, tables) {
			continue
		}
		violations = append(violations, Violation{Reason: ReasonUnknownColumn, Detail: tok.text})
	}
	return violations
}

func (r *references) resolvesBare(name string, tables []string) bool {
	if _, ok := r.aliases[name]; ok {
		return true
	}
	if _, ok := r.sources[name]; ok {
		return true
	}
	for _, table := range tables {
		if r.desc.HasColumn(table, name) {
			return true
		}
	}
	return false
}

func (r *references) referencedTables() []string {
	seen := map[string]struct{}{}
	for _, src := range r.sources {
		if !src.derived && src.table != "" {
			seen[src.table] = struct{}{}
		}
	}
	tables := make([]string, 0, len(seen))
	for table := range seen {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

func isName(tok token) bool {
	return tok.typ == tokenIdent || tok.typ == tokenQuotedIdent
}

func matchParen(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].typ {
		case tokenLParen:
			depth++
		case tokenRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
