// Package fallback generates SQL from a question with ordered keyword rules.
// It never fails: a question no rule understands gets a select-all over the
// table it mentions most.
package fallback

import (
	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/schema"
)

const (
	RuleDefault = "default"
	// RuleTrivial is used only when the schema has no tables.
	RuleTrivial = "trivial"
)

type Generator struct {
	departments []department
}

func New(departments []nl2sql.DepartmentAlias) *Generator {
	if len(departments) == 0 {
		departments = nl2sql.DefaultDepartments()
	}
	return &Generator{departments: normalizeDepartments(departments)}
}

// Generate applies the first matching rule. Output only names tables and
// columns present in req.Schema.
func (g *Generator) Generate(req nl2sql.Request) nl2sql.Candidate {
	if len(req.Schema.Tables) == 0 {
		return nl2sql.Candidate{SQL: "SELECT 1", Source: nl2sql.SourceFallback, Rule: RuleTrivial}
	}
	f := extract(req.Question, req.Schema, g.departments)
	for _, r := range rules {
		if sql, ok := r.build(f); ok {
			return nl2sql.Candidate{SQL: sql, Source: nl2sql.SourceFallback, Rule: r.name}
		}
	}
	return nl2sql.Candidate{SQL: "SELECT * FROM " + f.primary, Source: nl2sql.SourceFallback, Rule: RuleDefault}
}

// MostRelevantTable returns the table the question mentions most, the owner
// of the attribute it asks about, or the first table of the schema. It
// returns "" for an empty schema.
func MostRelevantTable(question nl2sql.Question, desc schema.Description) string {
	if len(desc.Tables) == 0 {
		return ""
	}
	return extract(question, desc, nil).primary
}
