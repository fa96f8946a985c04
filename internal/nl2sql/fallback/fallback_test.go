package fallback

import (
	"testing"

	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/schema"
)

func TestGenerateRules(t *testing.T) {
	tests := []struct {
		question string
		rule     string
		want     string
	}{
		{
			question: "Quantos estudantes há em ciência da computação?",
			rule:     "count",
			want:     "SELECT COUNT(*) FROM student WHERE dept_name = 'Computer Science'",
		},
		{
			question: "Who has the highest salary?",
			rule:     "superlative_max",
			want:     "SELECT name FROM instructor ORDER BY salary DESC LIMIT 1",
		},
		{
			question: "Quais alunos têm mais de 100 créditos?",
			rule:     "threshold",
			want:     "SELECT name, tot_cred FROM student WHERE tot_cred > 100",
		},
		{
			question: "Students with at least 30 credits",
			rule:     "threshold",
			want:     "SELECT name, tot_cred FROM student WHERE tot_cred >= 30",
		},
		{
			question: "Quais professores têm salário maior que 80000?",
			rule:     "threshold",
			want:     "SELECT name, salary FROM instructor WHERE salary > 80000",
		},
		{
			question: "What is the average grade of Finance courses in 2024?",
			rule:     "average_grade",
			want:     "SELECT AVG(takes.grade) FROM takes JOIN course ON takes.course_id = course.course_id WHERE course.dept_name = 'Finance' AND takes.year = 2024",
		},
		{
			question: "Qual a média das notas?",
			rule:     "average_grade",
			want:     "SELECT AVG(grade) FROM takes",
		},
		{
			question: "Quantos alunos por departamento?",
			rule:     "grouped_count",
			want:     "SELECT dept_name, COUNT(*) FROM student GROUP BY dept_name",
		},
		{
			question: "Average salary by department",
			rule:     "grouped_average",
			want:     "SELECT dept_name, AVG(salary) FROM instructor GROUP BY dept_name",
		},
		{
			question: "How many instructors have a salary above 90000?",
			rule:     "count",
			want:     "SELECT COUNT(*) FROM instructor WHERE salary > 90000",
		},
		{
			question: "Média de salário dos professores de física",
			rule:     "average",
			want:     "SELECT AVG(salary) FROM instructor WHERE dept_name = 'Physics'",
		},
		{
			question: "Which department has the highest budget?",
			rule:     "superlative_max",
			want:     "SELECT dept_name FROM department ORDER BY budget DESC LIMIT 1",
		},
		{
			question: "Qual o menor orçamento?",
			rule:     "superlative_min",
			want:     "SELECT dept_name FROM department ORDER BY budget ASC LIMIT 1",
		},
		{
			question: "Qual a maior nota?",
			rule:     "superlative_max",
			want:     "SELECT * FROM takes WHERE grade IS NOT NULL ORDER BY grade DESC LIMIT 1",
		},
		{
			question: "Show the grades of each student in their courses",
			rule:     "student_grades",
			want:     "SELECT student.name, course.title, takes.grade FROM student JOIN takes ON takes.id = student.id JOIN course ON takes.course_id = course.course_id",
		},
		{
			question: "Liste os professores de música",
			rule:     "department_filter",
			want:     "SELECT * FROM instructor WHERE dept_name = 'Music'",
		},
		{
			question: "List all courses",
			rule:     "list",
			want:     "SELECT * FROM course",
		},
		{
			question: "quantos professores ganham mais de 50000 por departamento",
			rule:     "grouped_count",
			want:     "SELECT dept_name, COUNT(*) FROM instructor WHERE salary > 50000 GROUP BY dept_name",
		},
		{
			question: "average grade by department",
			rule:     "grouped_average_grade",
			want:     "SELECT course.dept_name, AVG(takes.grade) FROM takes JOIN course ON takes.course_id = course.course_id GROUP BY course.dept_name",
		},
		{
			question: "Média das notas dos alunos por departamento",
			rule:     "grouped_average_grade",
			want:     "SELECT student.dept_name, AVG(takes.grade) FROM takes JOIN student ON takes.id = student.id GROUP BY student.dept_name",
		},
		{
			question: "what is the lowest grade of students in math",
			rule:     "superlative_min",
			want:     "SELECT student.name, takes.grade FROM takes JOIN student ON takes.id = student.id WHERE student.dept_name = 'Math' AND takes.grade IS NOT NULL ORDER BY takes.grade ASC LIMIT 1",
		},
		{
			question: "Average salary of physics instructors above 60000",
			rule:     "average",
			want:     "SELECT AVG(salary) FROM instructor WHERE dept_name = 'Physics' AND salary > 60000",
		},
		{
			question: "qual curso tem mais créditos",
			rule:     "superlative_max",
			want:     "SELECT title FROM course ORDER BY credits DESC LIMIT 1",
		},
		{
			question: "Quem ganha menos?",
			rule:     "superlative_min",
			want:     "SELECT name FROM instructor ORDER BY salary ASC LIMIT 1",
		},
		{
			question: "Tell me something about departments",
			rule:     RuleDefault,
			want:     "SELECT * FROM department",
		},
		{
			question: "hello",
			rule:     RuleDefault,
			want:     "SELECT * FROM student",
		},
	}

	generator := New(nil)
	desc := schema.University()
	for _, tc := range tests {
		got := generator.Generate(nl2sql.Request{Question: nl2sql.NewQuestion(tc.question, ""), Schema: desc})
		if got.SQL != tc.want {
			t.Errorf("Generate(%q).SQL = %q, want %q", tc.question, got.SQL, tc.want)
		}
		if got.Rule != tc.rule {
			t.Errorf("Generate(%q).Rule = %q, want %q", tc.question, got.Rule, tc.rule)
		}
		if got.Source != nl2sql.SourceFallback {
			t.Errorf("Generate(%q).Source = %q, want %q", tc.question, got.Source, nl2sql.SourceFallback)
		}
		if result := sqlcheck.Validate(got.SQL, desc); !result.Valid {
			t.Errorf("Generate(%q) produced invalid SQL %q: %v", tc.question, got.SQL, result.Violations)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	generator := New(nil)
	desc := schema.University()
	questions := []string{
		"Quantos estudantes há em ciência da computação?",
		"Quantos alunos e professores por departamento?",
		"Show the grades of each student in their courses",
		"courses students instructors",
	}
	for _, question := range questions {
		req := nl2sql.Request{Question: nl2sql.NewQuestion(question, ""), Schema: desc}
		first := generator.Generate(req)
		for i := 0; i < 25; i++ {
			if again := generator.Generate(req); again != first {
				t.Fatalf("Generate(%q) run %d = %+v, want %+v", question, i, again, first)
			}
		}
	}
}

func TestGenerateOnlyUsesSchemaTables(t *testing.T) {
	desc := schema.Description{Tables: []schema.Table{{
		Name:    "student",
		Columns: []schema.Column{{Name: "id", Type: schema.TypeInteger}, {Name: "name", Type: schema.TypeText}},
	}}}
	generator := New(nil)
	questions := []string{
		"Who has the highest salary?",
		"Quantos estudantes há em ciência da computação?",
		"What is the average grade of Finance courses in 2024?",
		"Show the grades of each student in their courses",
		"Quantos alunos por departamento?",
	}
	for _, question := range questions {
		got := generator.Generate(nl2sql.Request{Question: nl2sql.NewQuestion(question, ""), Schema: desc})
		if result := sqlcheck.Validate(got.SQL, desc); !result.Valid {
			t.Errorf("Generate(%q) = %q (%s), invalid: %v", question, got.SQL, got.Rule, result.Violations)
		}
	}
}

func TestGenerateDeclinesRulesThatWouldDropConstraints(t *testing.T) {
	desc := schema.Description{Tables: []schema.Table{
		{
			Name:    "student",
			Columns: []schema.Column{{Name: "id", Type: schema.TypeInteger}, {Name: "name", Type: schema.TypeText}, {Name: "tot_cred", Type: schema.TypeInteger}},
		},
		{
			Name:    "takes",
			Columns: []schema.Column{{Name: "id", Type: schema.TypeInteger}, {Name: "grade", Type: schema.TypeNumeric}},
		},
	}}
	generator := New(nil)
	tests := []struct {
		question string
		notRule  string
	}{
		{question: "How many students are in physics?", notRule: "count"},
		{question: "Quantos alunos por departamento?", notRule: "count"},
		{question: "what is the lowest grade of students in math", notRule: "superlative_min"},
		{question: "average grade by department", notRule: "average"},
	}
	for _, tc := range tests {
		got := generator.Generate(nl2sql.Request{Question: nl2sql.NewQuestion(tc.question, ""), Schema: desc})
		if got.Rule == tc.notRule {
			t.Errorf("Generate(%q) = %q via %s, want the rule to decline", tc.question, got.SQL, got.Rule)
		}
		if result := sqlcheck.Validate(got.SQL, desc); !result.Valid {
			t.Errorf("Generate(%q) = %q, invalid: %v", tc.question, got.SQL, result.Violations)
		}
	}
}

func TestGenerateEscapesDepartmentLiteral(t *testing.T) {
	generator := New([]nl2sql.DepartmentAlias{{Name: "Women's Studies", Phrases: []string{"women's studies"}}})
	got := generator.Generate(nl2sql.Request{
		Question: nl2sql.NewQuestion("How many students are in women's studies?", ""),
		Schema:   schema.University(),
	})
	want := "SELECT COUNT(*) FROM student WHERE dept_name = 'Women''s Studies'"
	if got.SQL != want {
		t.Fatalf("Generate().SQL = %q, want %q", got.SQL, want)
	}
}

func TestGenerateEmptySchema(t *testing.T) {
	got := New(nil).Generate(nl2sql.Request{Question: nl2sql.NewQuestion("how many students?", "")})
	if got.SQL != "SELECT 1" || got.Rule != RuleTrivial {
		t.Fatalf("Generate() = %+v, want SELECT 1", got)
	}
}

func TestMostRelevantTable(t *testing.T) {
	desc := schema.University()
	tests := []struct {
		question string
		want     string
	}{
		{question: "Quantos alunos por departamento?", want: "student"},
		{question: "departments and their students and departments", want: "department"},
		{question: "Who has the highest salary?", want: "instructor"},
		{question: "courses or instructors", want: "course"},
		{question: "nothing relevant", want: "student"},
	}
	for _, tc := range tests {
		if got := MostRelevantTable(nl2sql.NewQuestion(tc.question, ""), desc); got != tc.want {
			t.Errorf("MostRelevantTable(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
	if got := MostRelevantTable(nl2sql.NewQuestion("students", ""), schema.Description{}); got != "" {
		t.Fatalf("MostRelevantTable(empty) = %q, want empty", got)
	}
}
