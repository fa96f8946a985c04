// Package cache stores validated translations keyed by question and schema.
package cache

import (
	"context"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/uniquery/uniquery/internal/nl2sql"
)

const keyPrefix = "uniquery:translation:"

type Entry struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Cache implementations report a miss as (Entry{}, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Key identifies a question for a given schema. Questions differing only in
// case, accents or punctuation share a key.
func Key(question nl2sql.Question, schemaFingerprint string) string {
	raw := strings.Join([]string{nl2sql.Normalize(question.Text), string(question.Language), schemaFingerprint}, "|")
	return keyPrefix + strconv.FormatUint(xxh3.HashString(raw), 16)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }

func (Noop) Set(context.Context, string, Entry) error { return nil }
