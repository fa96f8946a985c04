package fallback

import (
	"regexp"
	"strings"

	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/schema"
)

type mention struct {
	table string
	count int
	first int
}

type threshold struct {
	op    string
	value string
}

// facts is what the rules see of a question.
type facts struct {
	text string
	desc schema.Description

	mentions []mention
	primary  string

	attribute  *attributeTerms
	column     columnRef
	department string
	threshold  *threshold
	year       string

	count, average, max, min, list, byDepartment bool
}

type compiledThreshold struct {
	op string
	re *regexp.Regexp
}

var (
	thresholdPatterns = compileThresholds()
	yearPattern       = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

func compileThresholds() []compiledThreshold {
	var compiled []compiledThreshold
	for _, terms := range thresholds {
		for _, phrase := range terms.phrases {
			compiled = append(compiled, compiledThreshold{
				op: terms.op,
				re: regexp.MustCompile(`(?:^| )` + regexp.QuoteMeta(phrase) + ` (\d+)\b`),
			})
		}
	}
	return compiled
}

func extract(question nl2sql.Question, desc schema.Description, departments []department) *facts {
	f := &facts{text: nl2sql.Normalize(question.Text), desc: desc}

	// Threshold phrases are removed before intent matching so "maior que 10"
	// is not read as a superlative.
	intentText := f.text
	thresholdStart := -1
	for _, pattern := range thresholdPatterns {
		loc := pattern.re.FindStringSubmatchIndex(f.text)
		if loc == nil {
			continue
		}
		f.threshold = &threshold{op: pattern.op, value: f.text[loc[2]:loc[3]]}
		thresholdStart = loc[2]
		intentText = f.text[:loc[0]] + " " + f.text[loc[1]:]
		break
	}
	for _, loc := range yearPattern.FindAllStringSubmatchIndex(f.text, -1) {
		if loc[2] == thresholdStart {
			continue
		}
		f.year = f.text[loc[2]:loc[3]]
		break
	}
	intentText = strings.Join(strings.Fields(intentText), " ")

	f.mentions = entityMentions(f.text, desc)
	f.primary = mostMentioned(f.mentions)
	f.attribute = firstAttribute(f.text)
	if f.attribute != nil {
		if column, ok := resolveAttribute(*f.attribute, f.primary, desc); ok {
			f.column = column
			if f.primary == "" {
				f.primary = column.table
			}
		} else {
			f.attribute = nil
		}
	}
	if f.primary == "" && len(desc.Tables) > 0 {
		f.primary = desc.Tables[0].Name
	}
	f.department = matchDepartment(f.text, departments)

	f.count = containsAny(intentText, countTerms)
	f.average = containsAny(intentText, averageTerms)
	f.max = containsAny(intentText, maxTerms)
	f.min = containsAny(intentText, minTerms)
	f.list = containsAny(intentText, listTerms)
	f.byDepartment = containsAny(intentText, byDepartmentTerms)
	return f
}

func (f *facts) mentioned(table string) bool {
	for _, m := range f.mentions {
		if m.table == table {
			return true
		}
	}
	return false
}

func (f *facts) attributeIs(kind attributeKind) bool {
	return f.attribute != nil && f.attribute.kind == kind
}

func entityMentions(text string, desc schema.Description) []mention {
	var mentions []mention
	for _, table := range desc.Tables {
		name := strings.ToLower(table.Name)
		phrases := append([]string{}, entitySynonyms[name]...)
		spaced := strings.ReplaceAll(name, "_", " ")
		phrases = append(phrases, spaced, spaced+"s")

		m := mention{table: table.Name, first: -1}
		seen := map[string]struct{}{}
		for _, phrase := range phrases {
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			for _, idx := range phraseIndexes(text, phrase) {
				m.count++
				if m.first < 0 || idx < m.first {
					m.first = idx
				}
			}
		}
		if m.count > 0 {
			mentions = append(mentions, m)
		}
	}
	return mentions
}

// mostMentioned picks the table with the most mentions, earliest first on ties.
func mostMentioned(mentions []mention) string {
	var best *mention
	for i := range mentions {
		m := &mentions[i]
		if best == nil || m.count > best.count || (m.count == best.count && m.first < best.first) {
			best = m
		}
	}
	if best == nil {
		return ""
	}
	return best.table
}

func firstAttribute(text string) *attributeTerms {
	var found *attributeTerms
	first := -1
	for i := range attributes {
		for _, phrase := range attributes[i].phrases {
			idx := nl2sql.PhraseIndex(text, phrase)
			if idx >= 0 && (first < 0 || idx < first) {
				found = &attributes[i]
				first = idx
			}
		}
	}
	return found
}

func resolveAttribute(attr attributeTerms, primary string, desc schema.Description) (columnRef, bool) {
	for _, owner := range attr.owners {
		if strings.EqualFold(owner.table, primary) && desc.HasColumn(owner.table, owner.column) {
			return owner, true
		}
	}
	for _, owner := range attr.owners {
		if desc.HasColumn(owner.table, owner.column) {
			return owner, true
		}
	}
	return columnRef{}, false
}

type department struct {
	name    string
	phrases []string
}

func normalizeDepartments(aliases []nl2sql.DepartmentAlias) []department {
	departments := make([]department, 0, len(aliases))
	for _, alias := range aliases {
		d := department{name: alias.Name}
		for _, phrase := range alias.Phrases {
			if normalized := nl2sql.Normalize(phrase); normalized != "" {
				d.phrases = append(d.phrases, normalized)
			}
		}
		departments = append(departments, d)
	}
	return departments
}

// matchDepartment returns the department whose phrase appears earliest,
// preferring the longer phrase at the same position.
func matchDepartment(text string, departments []department) string {
	name := ""
	first, longest := -1, 0
	for _, d := range departments {
		for _, phrase := range d.phrases {
			idx := nl2sql.PhraseIndex(text, phrase)
			if idx < 0 {
				continue
			}
			if first < 0 || idx < first || (idx == first && len(phrase) > longest) {
				name, first, longest = d.name, idx, len(phrase)
			}
		}
	}
	return name
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if nl2sql.ContainsPhrase(text, phrase) {
			return true
		}
	}
	return false
}

func phraseIndexes(text, phrase string) []int {
	var indexes []int
	padded := " " + text + " "
	needle := " " + phrase + " "
	offset := 0
	for {
		idx := strings.Index(padded[offset:], needle)
		if idx < 0 {
			return indexes
		}
		indexes = append(indexes, offset+idx)
		offset += idx + len(needle) - 1
	}
}
