package nl2sql

import (
	"fmt"
	"strings"
)

const systemPrompt = "You convert natural language questions about a university database into a single read-only SQL query. " +
	"The database uses PostgreSQL syntax. " +
	"Return ONLY SQL. No markdown, no explanation."

const fewShotExamples = `Average grade for a department in a year:
SELECT AVG(takes.grade) FROM takes JOIN course ON takes.course_id = course.course_id WHERE course.dept_name = 'Finance' AND takes.year = 2024
Students in a department:
SELECT COUNT(*) FROM student WHERE dept_name = 'Computer Science'
Instructors by salary:
SELECT name, salary FROM instructor ORDER BY salary DESC
Courses of a department:
SELECT title, credits FROM course WHERE dept_name = 'Physics'
Students and their grades:
SELECT student.name, course.title, takes.grade FROM student JOIN takes ON takes.id = student.id JOIN course ON takes.course_id = course.course_id WHERE takes.year = 2024`

func buildUserPrompt(req Request, departments []DepartmentAlias) string {
	var aliases strings.Builder
	for _, dept := range departments {
		aliases.WriteString(fmt.Sprintf("- %s -> '%s'\n", strings.Join(dept.Phrases, ", "), dept.Name))
	}

	language := "English"
	if req.Question.Language == LanguagePortuguese {
		language = "Portuguese"
	}

	return fmt.Sprintf(
		"Schema (table(columns) and foreign keys):\n%s\n\nDepartment names:\n%s\nExamples:\n%s\n\nRules:\n"+
			"- Use only the listed tables and columns.\n"+
			"- Use JOINs along the listed foreign keys.\n"+
			"- Use single quotes for strings.\n"+
			"- Output exactly one SELECT statement.\n\n"+
			"Question (%s):\n%s",
		req.Schema.Linearize(),
		aliases.String(),
		fewShotExamples,
		language,
		strings.TrimSpace(req.Question.Text),
	)
}

// BuildPrompt returns the single-text prompt used by backends without a
// separate system role.
func BuildPrompt(req Request, departments []DepartmentAlias) string {
	return systemPrompt + "\n\n" + buildUserPrompt(req, departments)
}
