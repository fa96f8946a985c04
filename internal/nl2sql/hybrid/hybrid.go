// Package hybrid combines the model generator, the rule-based fallback and a
// safe default so that every question yields SQL that passed validation.
package hybrid

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/uniquery/uniquery/internal/cache"
	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/nl2sql/fallback"
	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/observability"
	"github.com/uniquery/uniquery/internal/schema"
)

type State string

const (
	StateStart             State = "START"
	StateModelAttempted    State = "MODEL_ATTEMPTED"
	StateFallbackAttempted State = "FALLBACK_ATTEMPTED"
	StateDone              State = "DONE"
)

// Outcome is the result of asking the model for a candidate.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeInvalid
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// FallbackGenerator is satisfied by *fallback.Generator.
type FallbackGenerator interface {
	Generate(req nl2sql.Request) nl2sql.Candidate
}

type Rejection struct {
	Source     nl2sql.Source        `json:"source"`
	SQL        string               `json:"sql,omitempty"`
	Violations []sqlcheck.Violation `json:"violations,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type Translation struct {
	nl2sql.Candidate
	Question     nl2sql.Question `json:"question"`
	Trace        []State         `json:"trace"`
	ModelOutcome string          `json:"model_outcome"`
	Rejected     []Rejection     `json:"rejected,omitempty"`
	Cached       bool            `json:"cached"`
	DurationMs   int64           `json:"duration_ms"`
}

type Options struct {
	// Model may be nil, which is treated as an unavailable backend.
	Model    nl2sql.Generator
	Fallback FallbackGenerator
	Cache    cache.Cache
	Logger   *slog.Logger
}

type Orchestrator struct {
	model    nl2sql.Generator
	fallback FallbackGenerator
	cache    cache.Cache
	logger   *slog.Logger
	now      func() time.Time
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		model:    opts.Model,
		fallback: opts.Fallback,
		cache:    opts.Cache,
		logger:   opts.Logger,
		now:      time.Now,
	}
	if o.fallback == nil {
		o.fallback = fallback.New(nil)
	}
	if o.cache == nil {
		o.cache = cache.Noop{}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

type modelResult struct {
	outcome    Outcome
	candidate  nl2sql.Candidate
	violations []sqlcheck.Violation
	err        error
}

// Translate never fails: the returned candidate is always Valid. The model is
// tried once; an invalid or unavailable model hands over to the fallback, and
// a fallback rejected by the validator hands over to the default.
func (o *Orchestrator) Translate(ctx context.Context, question nl2sql.Question, desc schema.Description) Translation {
	start := o.now()
	t := Translation{Question: question, Trace: []State{StateStart}}
	req := nl2sql.Request{Question: question, Schema: desc}
	key := cache.Key(question, desc.Fingerprint())

	if candidate, ok := o.cached(ctx, key, desc); ok {
		t.Cached = true
		t.ModelOutcome = OutcomeValid.String()
		return o.finish(ctx, t, candidate, start)
	}

	t.Trace = append(t.Trace, StateModelAttempted)
	result := o.attemptModel(ctx, req)
	t.ModelOutcome = result.outcome.String()
	switch result.outcome {
	case OutcomeValid:
		o.store(ctx, key, result.candidate)
		return o.finish(ctx, t, result.candidate, start)
	case OutcomeInvalid:
		rejection := Rejection{Source: nl2sql.SourceModel, SQL: result.candidate.SQL, Violations: result.violations}
		if result.err != nil {
			rejection.Error = result.err.Error()
		}
		t.Rejected = append(t.Rejected, rejection)
		o.logger.DebugContext(ctx, "model candidate rejected",
			slog.String("sql", result.candidate.SQL),
			slog.Any("violations", result.violations),
			slog.Any("error", result.err),
		)
	case OutcomeUnavailable:
		o.logger.DebugContext(ctx, "model unavailable", slog.Any("error", result.err))
	}

	t.Trace = append(t.Trace, StateFallbackAttempted)
	candidate := o.fallback.Generate(req)
	candidate.Source = nl2sql.SourceFallback
	check := sqlcheck.Validate(candidate.SQL, desc)
	if check.Valid {
		o.logger.DebugContext(ctx, "fallback rule matched", slog.String("rule", candidate.Rule))
		return o.finish(ctx, t, candidate, start)
	}
	observability.ObserveValidationFailure(string(nl2sql.SourceFallback), string(check.Reason()))
	t.Rejected = append(t.Rejected, Rejection{Source: nl2sql.SourceFallback, SQL: candidate.SQL, Violations: check.Violations})
	o.logger.WarnContext(ctx, "fallback candidate rejected, using default",
		slog.String("rule", candidate.Rule),
		slog.String("sql", candidate.SQL),
		slog.Any("violations", check.Violations),
	)

	return o.finish(ctx, t, defaultCandidate(question, desc), start)
}

func (o *Orchestrator) attemptModel(ctx context.Context, req nl2sql.Request) modelResult {
	if o.model == nil {
		return modelResult{outcome: OutcomeUnavailable, err: errors.New("no model configured")}
	}
	start := o.now()
	candidate, err := o.model.Generate(ctx, req)
	elapsed := o.now().Sub(start)
	candidate.Source = nl2sql.SourceModel

	var result modelResult
	switch {
	case err != nil && errors.Is(err, nl2sql.ErrModelUnavailable):
		result = modelResult{outcome: OutcomeUnavailable, err: err}
	case err != nil:
		result = modelResult{outcome: OutcomeInvalid, candidate: candidate, err: err}
	default:
		check := sqlcheck.Validate(candidate.SQL, req.Schema)
		if check.Valid {
			result = modelResult{outcome: OutcomeValid, candidate: candidate}
		} else {
			observability.ObserveValidationFailure(string(nl2sql.SourceModel), string(check.Reason()))
			result = modelResult{outcome: OutcomeInvalid, candidate: candidate, violations: check.Violations}
		}
	}
	observability.ObserveModelOutcome(result.outcome.String(), elapsed)
	return result
}

func (o *Orchestrator) cached(ctx context.Context, key string, desc schema.Description) (nl2sql.Candidate, bool) {
	entry, ok, err := o.cache.Get(ctx, key)
	switch {
	case err != nil:
		observability.ObserveCacheLookup("error")
		o.logger.WarnContext(ctx, "translation cache read failed", slog.Any("error", err))
		return nl2sql.Candidate{}, false
	case !ok:
		observability.ObserveCacheLookup("miss")
		return nl2sql.Candidate{}, false
	}
	if check := sqlcheck.Validate(entry.SQL, desc); !check.Valid {
		observability.ObserveCacheLookup("stale")
		o.logger.DebugContext(ctx, "cached translation no longer valid", slog.Any("violations", check.Violations))
		return nl2sql.Candidate{}, false
	}
	observability.ObserveCacheLookup("hit")
	return nl2sql.Candidate{SQL: entry.SQL, Source: nl2sql.SourceModel, Provider: entry.Provider, Model: entry.Model}, true
}

func (o *Orchestrator) store(ctx context.Context, key string, candidate nl2sql.Candidate) {
	entry := cache.Entry{SQL: candidate.SQL, Provider: candidate.Provider, Model: candidate.Model}
	if err := o.cache.Set(ctx, key, entry); err != nil {
		o.logger.WarnContext(ctx, "translation cache write failed", slog.Any("error", err))
	}
}

func (o *Orchestrator) finish(ctx context.Context, t Translation, candidate nl2sql.Candidate, start time.Time) Translation {
	candidate.Valid = true
	t.Candidate = candidate
	t.Trace = append(t.Trace, StateDone)
	t.DurationMs = o.now().Sub(start).Milliseconds()
	observability.ObserveTranslation(string(candidate.Source))
	o.logger.DebugContext(ctx, "translation done",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("source", string(candidate.Source)),
		slog.String("model_outcome", t.ModelOutcome),
		slog.Bool("cached", t.Cached),
	)
	return t
}

// defaultCandidate selects every row of the most relevant table, or SELECT 1
// when even that does not validate.
func defaultCandidate(question nl2sql.Question, desc schema.Description) nl2sql.Candidate {
	if table := fallback.MostRelevantTable(question, desc); table != "" {
		sql := "SELECT * FROM " + table
		if sqlcheck.Validate(sql, desc).Valid {
			return nl2sql.Candidate{SQL: sql, Source: nl2sql.SourceDefault}
		}
	}
	return nl2sql.Candidate{SQL: "SELECT 1", Source: nl2sql.SourceDefault}
}
