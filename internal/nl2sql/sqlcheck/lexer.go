package sqlcheck

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenQuotedIdent
	tokenKeyword
	tokenString
	tokenNumber
	tokenOperator
	tokenComma
	tokenDot
	tokenLParen
	tokenRParen
	tokenSemicolon
	tokenStar
	tokenParam
)

type token struct {
	typ tokenType
	// text is lowercased for identifiers and keywords.
	text string
	pos  int
}

func (t token) is(typ tokenType, text string) bool {
	return t.typ == typ && t.text == text
}

func (t token) isKeyword(words ...string) bool {
	if t.typ != tokenKeyword {
		return false
	}
	for _, word := range words {
		if t.text == word {
			return true
		}
	}
	return false
}

type lexer struct {
	input string
	pos   int
}

// tokenize splits SQL into tokens, dropping whitespace and comments.
func tokenize(input string) ([]token, error) {
	l := &lexer{input: input}
	tokens := make([]token, 0, 32)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) next() (token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '\'':
		text, err := l.readQuoted('\'')
		if err != nil {
			return token{}, err
		}
		return token{typ: tokenString, text: text, pos: start}, nil
	case ch == '"' || ch == '`':
		text, err := l.readQuoted(ch)
		if err != nil {
			return token{}, err
		}
		if text == "" {
			return token{}, fmt.Errorf("empty quoted identifier at %d", start)
		}
		return token{typ: tokenQuotedIdent, text: strings.ToLower(text), pos: start}, nil
	case isLetter(ch):
		word := l.readWhile(func(c byte) bool { return isLetter(c) || isDigit(c) || c == '$' })
		lower := strings.ToLower(word)
		if _, ok := keywords[lower]; ok {
			return token{typ: tokenKeyword, text: lower, pos: start}, nil
		}
		return token{typ: tokenIdent, text: lower, pos: start}, nil
	case isDigit(ch) || (ch == '.' && l.peekIsDigit(1)):
		return token{typ: tokenNumber, text: l.readNumber(), pos: start}, nil
	case ch == '$' && l.peekIsDigit(1):
		l.pos++
		return token{typ: tokenParam, text: "$" + l.readWhile(isDigit), pos: start}, nil
	case ch == '?':
		l.pos++
		return token{typ: tokenParam, text: "?", pos: start}, nil
	case ch == ',':
		l.pos++
		return token{typ: tokenComma, text: ",", pos: start}, nil
	case ch == '.':
		l.pos++
		return token{typ: tokenDot, text: ".", pos: start}, nil
	case ch == '(':
		l.pos++
		return token{typ: tokenLParen, text: "(", pos: start}, nil
	case ch == ')':
		l.pos++
		return token{typ: tokenRParen, text: ")", pos: start}, nil
	case ch == ';':
		l.pos++
		return token{typ: tokenSemicolon, text: ";", pos: start}, nil
	case ch == '*':
		l.pos++
		return token{typ: tokenStar, text: "*", pos: start}, nil
	}

	for _, op := range operators {
		if strings.HasPrefix(l.input[l.pos:], op) {
			l.pos += len(op)
			return token{typ: tokenOperator, text: op, pos: start}, nil
		}
	}
	return token{}, fmt.Errorf("unexpected character %q at %d", ch, start)
}

// operators is ordered longest first.
var operators = []string{"::", "<=", ">=", "<>", "!=", "||", "=", "<", ">", "+", "-", "/", "%"}

func (l *lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.pos++
		case strings.HasPrefix(l.input[l.pos:], "--"):
			end := strings.IndexByte(l.input[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.input)
				return nil
			}
			l.pos += end + 1
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return fmt.Errorf("unterminated comment at %d", l.pos)
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) readQuoted(quote byte) (string, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == quote {
				b.WriteByte(quote)
				l.pos += 2
				continue
			}
			l.pos++
			return b.String(), nil
		}
		b.WriteByte(ch)
		l.pos++
	}
	return "", fmt.Errorf("unterminated quoted text at %d", start)
}

func (l *lexer) readWhile(accept func(byte) bool) string {
	start := l.pos
	for l.pos < len(l.input) && accept(l.input[l.pos]) {
		l.pos++
	}
	return l.input[start:l.pos]
}

func (l *lexer) readNumber() string {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) {
			l.pos++
			continue
		}
		if ch == '.' && !seenDot && l.peekIsDigit(1) {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		next := l.pos + 1
		if next < len(l.input) && (l.input[next] == '+' || l.input[next] == '-') {
			next++
		}
		if next < len(l.input) && isDigit(l.input[next]) {
			l.pos = next
			l.readWhile(isDigit)
		}
	}
	return l.input[start:l.pos]
}

func (l *lexer) peekIsDigit(offset int) bool {
	idx := l.pos + offset
	return idx < len(l.input) && isDigit(l.input[idx])
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
