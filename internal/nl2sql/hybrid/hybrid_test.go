package hybrid

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/uniquery/uniquery/internal/cache"
	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/schema"
)

type fakeModel struct {
	sql   string
	err   error
	calls atomic.Int32
}

func (m *fakeModel) Generate(context.Context, nl2sql.Request) (nl2sql.Candidate, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nl2sql.Candidate{}, m.err
	}
	return nl2sql.Candidate{SQL: m.sql, Source: nl2sql.SourceModel, Provider: "fake", Model: "fake-1"}, nil
}

type staticFallback struct {
	sql string
}

func (f staticFallback) Generate(nl2sql.Request) nl2sql.Candidate {
	return nl2sql.Candidate{SQL: f.sql, Source: nl2sql.SourceFallback, Rule: "static"}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, cache.Entry) error {
	return errors.New("connection refused")
}

var highestSalary = nl2sql.NewQuestion("Who has the highest salary?", nl2sql.LanguageEnglish)

func TestTranslateUsesValidModelOutput(t *testing.T) {
	model := &fakeModel{sql: "SELECT name FROM student WHERE tot_cred > 90"}
	o := New(Options{Model: model})

	got := o.Translate(context.Background(), highestSalary, schema.University())
	if got.Source != nl2sql.SourceModel || !got.Valid {
		t.Fatalf("Translate() = %+v, want valid MODEL", got.Candidate)
	}
	if got.SQL != model.sql {
		t.Fatalf("Translate().SQL = %q", got.SQL)
	}
	if got.Provider != "fake" || got.Model != "fake-1" {
		t.Fatalf("provider/model = %q/%q", got.Provider, got.Model)
	}
	want := []State{StateStart, StateModelAttempted, StateDone}
	if !reflect.DeepEqual(got.Trace, want) {
		t.Fatalf("Trace = %v, want %v", got.Trace, want)
	}
	if got.ModelOutcome != "valid" {
		t.Fatalf("ModelOutcome = %q", got.ModelOutcome)
	}
}

func TestTranslateFallsBackOnUnknownTable(t *testing.T) {
	model := &fakeModel{sql: "SELECT * FROM nonexistent_table"}
	o := New(Options{Model: model})

	got := o.Translate(context.Background(), highestSalary, schema.University())
	if got.Source != nl2sql.SourceFallback || !got.Valid {
		t.Fatalf("Translate() = %+v, want valid FALLBACK", got.Candidate)
	}
	if got.SQL != "SELECT name FROM instructor ORDER BY salary DESC LIMIT 1" {
		t.Fatalf("Translate().SQL = %q", got.SQL)
	}
	if got.ModelOutcome != "invalid" {
		t.Fatalf("ModelOutcome = %q, want invalid", got.ModelOutcome)
	}
	if len(got.Rejected) != 1 || got.Rejected[0].Violations[0].Reason != sqlcheck.ReasonUnknownTable {
		t.Fatalf("Rejected = %+v", got.Rejected)
	}
	want := []State{StateStart, StateModelAttempted, StateFallbackAttempted, StateDone}
	if !reflect.DeepEqual(got.Trace, want) {
		t.Fatalf("Trace = %v, want %v", got.Trace, want)
	}
}

func TestTranslateFallsBackWhenModelUnavailable(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("%w: dial tcp: connection refused", nl2sql.ErrModelUnavailable)}
	o := New(Options{Model: model})

	got := o.Translate(context.Background(), highestSalary, schema.University())
	if got.Source != nl2sql.SourceFallback || !got.Valid {
		t.Fatalf("Translate() = %+v, want valid FALLBACK", got.Candidate)
	}
	if got.ModelOutcome != "unavailable" {
		t.Fatalf("ModelOutcome = %q, want unavailable", got.ModelOutcome)
	}
	if len(got.Rejected) != 0 {
		t.Fatalf("Rejected = %+v, want none for unavailable model", got.Rejected)
	}
	if model.calls.Load() != 1 {
		t.Fatalf("model calls = %d, want exactly 1", model.calls.Load())
	}
}

func TestTranslateTreatsOtherModelErrorsAsInvalid(t *testing.T) {
	model := &fakeModel{err: errors.New("translator returned status 400")}
	got := New(Options{Model: model}).Translate(context.Background(), highestSalary, schema.University())
	if got.Source != nl2sql.SourceFallback {
		t.Fatalf("Source = %q", got.Source)
	}
	if got.ModelOutcome != "invalid" {
		t.Fatalf("ModelOutcome = %q, want invalid", got.ModelOutcome)
	}
	if len(got.Rejected) != 1 || got.Rejected[0].Error == "" {
		t.Fatalf("Rejected = %+v", got.Rejected)
	}
}

func TestTranslateWithoutModel(t *testing.T) {
	question := nl2sql.NewQuestion("Quantos estudantes há em ciência da computação?", "")
	got := New(Options{}).Translate(context.Background(), question, schema.University())
	if got.Source != nl2sql.SourceFallback {
		t.Fatalf("Source = %q", got.Source)
	}
	if got.SQL != "SELECT COUNT(*) FROM student WHERE dept_name = 'Computer Science'" {
		t.Fatalf("SQL = %q", got.SQL)
	}
	if got.ModelOutcome != "unavailable" {
		t.Fatalf("ModelOutcome = %q", got.ModelOutcome)
	}
}

func TestTranslateRejectsDestructiveModelOutput(t *testing.T) {
	for _, sql := range []string{"DROP TABLE student", "DELETE FROM takes", "UPDATE instructor SET salary = 0", "INSERT INTO department VALUES ('x', 'y', 1)"} {
		got := New(Options{Model: &fakeModel{sql: sql}}).Translate(context.Background(), highestSalary, schema.University())
		if got.Source == nl2sql.SourceModel {
			t.Fatalf("Translate() accepted %q", sql)
		}
		if got.Rejected[0].Violations[0].Reason != sqlcheck.ReasonDisallowed {
			t.Fatalf("Rejected = %+v", got.Rejected)
		}
	}
}

func TestTranslateUsesDefaultWhenFallbackInvalid(t *testing.T) {
	o := New(Options{Fallback: staticFallback{sql: "SELECT * FROM dropped_table"}})

	got := o.Translate(context.Background(), highestSalary, schema.University())
	if got.Source != nl2sql.SourceDefault || !got.Valid {
		t.Fatalf("Translate() = %+v, want valid DEFAULT", got.Candidate)
	}
	if got.SQL != "SELECT * FROM instructor" {
		t.Fatalf("SQL = %q", got.SQL)
	}
	if len(got.Rejected) != 1 || got.Rejected[0].Source != nl2sql.SourceFallback {
		t.Fatalf("Rejected = %+v", got.Rejected)
	}
}

func TestTranslateDefaultsToSelectOneWithoutTables(t *testing.T) {
	o := New(Options{Fallback: staticFallback{sql: "SELECT * FROM anything"}})
	got := o.Translate(context.Background(), highestSalary, schema.Description{})
	if got.Source != nl2sql.SourceDefault || got.SQL != "SELECT 1" || !got.Valid {
		t.Fatalf("Translate() = %+v", got.Candidate)
	}
}

func TestTranslateCachesValidModelOutput(t *testing.T) {
	model := &fakeModel{sql: "SELECT name FROM instructor"}
	o := New(Options{Model: model, Cache: cache.NewMemory(10, 0)})
	desc := schema.University()

	first := o.Translate(context.Background(), highestSalary, desc)
	second := o.Translate(context.Background(), nl2sql.NewQuestion("who has the HIGHEST salary", nl2sql.LanguageEnglish), desc)
	if first.Cached || !second.Cached {
		t.Fatalf("Cached = %v, %v; want false, true", first.Cached, second.Cached)
	}
	if second.SQL != model.sql || second.Source != nl2sql.SourceModel || second.Provider != "fake" {
		t.Fatalf("cached translation = %+v", second.Candidate)
	}
	if model.calls.Load() != 1 {
		t.Fatalf("model calls = %d, want 1", model.calls.Load())
	}
	if !reflect.DeepEqual(second.Trace, []State{StateStart, StateDone}) {
		t.Fatalf("Trace = %v", second.Trace)
	}
}

func TestTranslateDoesNotCacheFallback(t *testing.T) {
	store := cache.NewMemory(10, 0)
	o := New(Options{Model: &fakeModel{sql: "SELECT * FROM nonexistent_table"}, Cache: store})
	o.Translate(context.Background(), highestSalary, schema.University())
	if store.Len() != 0 {
		t.Fatalf("cache entries = %d, want 0", store.Len())
	}
}

func TestTranslateRevalidatesCachedEntries(t *testing.T) {
	store := cache.NewMemory(10, 0)
	desc := schema.University()
	key := cache.Key(highestSalary, desc.Fingerprint())
	if err := store.Set(context.Background(), key, cache.Entry{SQL: "SELECT * FROM retired_table"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	model := &fakeModel{sql: "SELECT name FROM instructor"}

	got := New(Options{Model: model, Cache: store}).Translate(context.Background(), highestSalary, desc)
	if got.Cached || got.SQL != model.sql {
		t.Fatalf("Translate() = %+v, cached=%v", got.Candidate, got.Cached)
	}
	if model.calls.Load() != 1 {
		t.Fatalf("model calls = %d, want 1", model.calls.Load())
	}
}

func TestTranslateIgnoresCacheErrors(t *testing.T) {
	got := New(Options{Model: &fakeModel{sql: "SELECT name FROM instructor"}, Cache: failingCache{}}).
		Translate(context.Background(), highestSalary, schema.University())
	if got.Source != nl2sql.SourceModel || !got.Valid {
		t.Fatalf("Translate() = %+v", got.Candidate)
	}
}

func TestTranslateAlwaysValid(t *testing.T) {
	desc := schema.University()
	models := []nl2sql.Generator{
		nil,
		&fakeModel{sql: ""},
		&fakeModel{sql: "SELEC name FROM student"},
		&fakeModel{sql: "SELECT gpa FROM student"},
		&fakeModel{sql: "SELECT name FROM student; DROP TABLE student"},
		&fakeModel{err: nl2sql.ErrModelUnavailable},
	}
	questions := []string{"", "hello", "Quantos alunos por departamento?", "Qual a maior nota?", "List all courses"}
	for _, model := range models {
		o := New(Options{Model: model})
		for _, text := range questions {
			got := o.Translate(context.Background(), nl2sql.NewQuestion(text, ""), desc)
			if !got.Valid {
				t.Fatalf("Translate(%q) not valid: %+v", text, got)
			}
			if result := sqlcheck.Validate(got.SQL, desc); !result.Valid {
				t.Fatalf("Translate(%q) = %q fails validation: %v", text, got.SQL, result.Violations)
			}
		}
	}
}

func TestTranslateConcurrentUse(t *testing.T) {
	o := New(Options{Model: &fakeModel{sql: "SELECT name FROM instructor"}, Cache: cache.NewMemory(4, 0)})
	desc := schema.University()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := nl2sql.NewQuestion(fmt.Sprintf("question %d", i%6), nl2sql.LanguageEnglish)
			if got := o.Translate(context.Background(), q, desc); !got.Valid {
				t.Errorf("Translate() not valid: %+v", got)
			}
		}(i)
	}
	wg.Wait()
}

func TestOutcomeString(t *testing.T) {
	if OutcomeValid.String() != "valid" || OutcomeInvalid.String() != "invalid" || OutcomeUnavailable.String() != "unavailable" {
		t.Fatal("unexpected outcome names")
	}
}
