package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uniquery/uniquery/internal/schema"
)

// ErrModelUnavailable marks a model backend that could not produce output at
// all (load failure, timeout, rate limit, 5xx). Callers fall back instead of
// failing.
var ErrModelUnavailable = errors.New("model unavailable")

type Language string

const (
	LanguagePortuguese Language = "pt"
	LanguageEnglish    Language = "en"
)

func ParseLanguage(raw string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "pt", "pt-br", "pt_br", "portuguese", "portugues":
		return LanguagePortuguese, nil
	case "en", "en-us", "en_us", "english":
		return LanguageEnglish, nil
	default:
		return "", fmt.Errorf("unsupported language %q", raw)
	}
}

type Question struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
}

// NewQuestion trims the text and detects the language when none is declared.
func NewQuestion(text string, language Language) Question {
	text = strings.TrimSpace(text)
	if language == "" {
		language = DetectLanguage(text)
	}
	return Question{Text: text, Language: language}
}

type Source string

const (
	SourceModel    Source = "MODEL"
	SourceFallback Source = "FALLBACK"
	SourceDefault  Source = "DEFAULT"
)

type Candidate struct {
	SQL      string `json:"sql"`
	Source   Source `json:"source"`
	Valid    bool   `json:"valid"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Rule     string `json:"rule,omitempty"`
}

type Request struct {
	Question Question
	Schema   schema.Description
}

// Generator produces one SQL candidate per request. Model-backed generators
// return an error wrapping ErrModelUnavailable when the backend is down.
type Generator interface {
	Generate(ctx context.Context, req Request) (Candidate, error)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}
