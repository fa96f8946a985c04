package fallback

import (
	"fmt"
	"strings"
)

// rule turns facts into SQL. build reports false when the question does not
// fit or the schema lacks a table or column the template needs.
type rule struct {
	name  string
	build func(f *facts) (string, bool)
}

var rules = []rule{
	{name: "average_grade", build: averageGrade},
	{name: "grouped_average_grade", build: groupedAverageGrade},
	{name: "grouped_count", build: groupedCount},
	{name: "grouped_average", build: groupedAverage},
	{name: "count", build: count},
	{name: "average", build: average},
	{name: "superlative_max", build: superlative("DESC", func(f *facts) bool { return f.max })},
	{name: "superlative_min", build: superlative("ASC", func(f *facts) bool { return f.min })},
	{name: "threshold", build: thresholdFilter},
	{name: "student_grades", build: studentGrades},
	{name: "department_filter", build: departmentFilter},
	{name: "list", build: list},
}

// Rules below decline rather than drop a department, threshold or grouping
// the question asked for.

func averageGrade(f *facts) (string, bool) {
	if !f.average || !f.attributeIs(attrGrade) || f.byDepartment || f.threshold != nil {
		return "", false
	}
	if f.department == "" && f.year == "" {
		return "SELECT AVG(grade) FROM takes", true
	}
	if f.department == "" {
		if !f.desc.HasColumn("takes", "year") {
			return "", false
		}
		return "SELECT AVG(grade) FROM takes WHERE year = " + f.year, true
	}
	scope, ok := gradeScope(f)
	if !ok {
		return "", false
	}
	return "SELECT AVG(takes.grade) FROM " + scope.from + where(scope.conditions), true
}

func groupedAverageGrade(f *facts) (string, bool) {
	if !f.average || !f.attributeIs(attrGrade) || !f.byDepartment || f.threshold != nil || f.department != "" {
		return "", false
	}
	scope, ok := gradeScope(f)
	if !ok {
		return "", false
	}
	group := scope.owner + ".dept_name"
	return fmt.Sprintf("SELECT %s, AVG(takes.grade) FROM %s%s GROUP BY %s", group, scope.from, where(scope.conditions), group), true
}

func groupedCount(f *facts) (string, bool) {
	if !f.count || !f.byDepartment || strings.EqualFold(f.primary, "department") {
		return "", false
	}
	if !f.desc.HasColumn(f.primary, "dept_name") {
		return "", false
	}
	conditions, ok := f.constraints(f.primary)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("SELECT dept_name, COUNT(*) FROM %s%s GROUP BY dept_name", f.primary, where(conditions)), true
}

func groupedAverage(f *facts) (string, bool) {
	if !f.average || !f.byDepartment || f.attribute == nil {
		return "", false
	}
	table := f.column.table
	if !f.desc.HasColumn(table, "dept_name") {
		return "", false
	}
	conditions, ok := f.constraints(table)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("SELECT dept_name, AVG(%s) FROM %s%s GROUP BY dept_name", f.column.column, table, where(conditions)), true
}

func count(f *facts) (string, bool) {
	if !f.count || f.byDepartment {
		return "", false
	}
	conditions, ok := f.constraints(f.primary)
	if !ok {
		return "", false
	}
	return "SELECT COUNT(*) FROM " + f.primary + where(conditions), true
}

func average(f *facts) (string, bool) {
	if !f.average || f.attribute == nil || f.byDepartment {
		return "", false
	}
	conditions, ok := f.constraints(f.column.table)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("SELECT AVG(%s) FROM %s", f.column.column, f.column.table) + where(conditions), true
}

func superlative(direction string, wanted func(*facts) bool) func(*facts) (string, bool) {
	return func(f *facts) (string, bool) {
		if !wanted(f) || f.attribute == nil || f.byDepartment {
			return "", false
		}
		table := f.column.table
		if f.department != "" && !f.desc.HasColumn(table, "dept_name") && f.attributeIs(attrGrade) && f.threshold == nil {
			return gradeSuperlative(f, direction)
		}
		conditions, ok := f.constraints(table)
		if !ok {
			return "", false
		}
		if f.nullable(table, f.column.column) {
			conditions = append(conditions, f.column.column+" IS NOT NULL")
		}
		return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s LIMIT 1",
			f.label(table), table, where(conditions), f.column.column, direction), true
	}
}

// gradeSuperlative picks the best or worst grade within a department by
// joining takes to the table that carries dept_name.
func gradeSuperlative(f *facts, direction string) (string, bool) {
	scope, ok := gradeScope(f)
	if !ok {
		return "", false
	}
	label := f.label(scope.owner)
	if label == "*" {
		return "", false
	}
	conditions := scope.conditions
	if f.nullable("takes", "grade") {
		conditions = append(conditions, "takes.grade IS NOT NULL")
	}
	return fmt.Sprintf("SELECT %s.%s, takes.grade FROM %s%s ORDER BY takes.grade %s LIMIT 1",
		scope.owner, label, scope.from, where(conditions), direction), true
}

func thresholdFilter(f *facts) (string, bool) {
	if f.threshold == nil || f.attribute == nil || f.byDepartment {
		return "", false
	}
	table := f.column.table
	selected := "*"
	if label := f.label(table); label != "*" {
		selected = label + ", " + f.column.column
	}
	conditions, ok := f.constraints(table)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("SELECT %s FROM %s", selected, table) + where(conditions), true
}

func studentGrades(f *facts) (string, bool) {
	if !f.mentioned("student") || !(f.attributeIs(attrGrade) || f.mentioned("course")) {
		return "", false
	}
	for _, ref := range []columnRef{{"student", "name"}, {"course", "title"}, {"takes", "grade"}} {
		if !f.desc.HasColumn(ref.table, ref.column) {
			return "", false
		}
	}
	studentOn, ok := f.desc.JoinCondition("student", "takes")
	if !ok {
		return "", false
	}
	courseOn, ok := f.desc.JoinCondition("takes", "course")
	if !ok {
		return "", false
	}
	var conditions []string
	if f.department != "" && f.desc.HasColumn("student", "dept_name") {
		conditions = append(conditions, "student.dept_name = "+quote(f.department))
	}
	if f.year != "" && f.desc.HasColumn("takes", "year") {
		conditions = append(conditions, "takes.year = "+f.year)
	}
	return fmt.Sprintf("SELECT student.name, course.title, takes.grade FROM student JOIN takes ON %s JOIN course ON %s", studentOn, courseOn) + where(conditions), true
}

func departmentFilter(f *facts) (string, bool) {
	if f.department == "" || !f.desc.HasColumn(f.primary, "dept_name") {
		return "", false
	}
	return "SELECT * FROM " + f.primary + where(f.filters(f.primary)), true
}

func list(f *facts) (string, bool) {
	if !f.list || len(f.mentions) == 0 {
		return "", false
	}
	return "SELECT * FROM " + f.primary + where(f.filters(f.primary)), true
}

// filters returns the department and year conditions the table can carry.
func (f *facts) filters(table string) []string {
	var conditions []string
	if f.department != "" && f.desc.HasColumn(table, "dept_name") {
		conditions = append(conditions, "dept_name = "+quote(f.department))
	}
	if f.year != "" && f.desc.HasColumn(table, "year") {
		conditions = append(conditions, "year = "+f.year)
	}
	return conditions
}

// constraints returns filters plus the threshold condition. It reports false
// when the table cannot carry the detected department or threshold.
func (f *facts) constraints(table string) ([]string, bool) {
	if f.department != "" && !f.desc.HasColumn(table, "dept_name") {
		return nil, false
	}
	conditions := f.filters(table)
	if f.threshold == nil {
		return conditions, true
	}
	if f.attribute == nil || !strings.EqualFold(f.column.table, table) {
		return nil, false
	}
	return append(conditions, fmt.Sprintf("%s %s %s", f.column.column, f.threshold.op, f.threshold.value)), true
}

type joinScope struct {
	from       string
	owner      string
	conditions []string
}

// gradeScope joins takes to student when the question is about students and
// to course otherwise, with department and year conditions qualified.
func gradeScope(f *facts) (joinScope, bool) {
	owner := "course"
	if f.mentioned("student") {
		owner = "student"
	}
	if !f.desc.HasColumn("takes", "grade") || !f.desc.HasColumn(owner, "dept_name") {
		return joinScope{}, false
	}
	on, ok := f.desc.JoinCondition("takes", owner)
	if !ok {
		return joinScope{}, false
	}
	scope := joinScope{from: fmt.Sprintf("takes JOIN %s ON %s", owner, on), owner: owner}
	if f.department != "" {
		scope.conditions = append(scope.conditions, owner+".dept_name = "+quote(f.department))
	}
	if f.year != "" && f.desc.HasColumn("takes", "year") {
		scope.conditions = append(scope.conditions, "takes.year = "+f.year)
	}
	return scope, true
}

func (f *facts) nullable(table, column string) bool {
	if t, ok := f.desc.Table(table); ok {
		if c, ok := t.Column(column); ok {
			return c.Nullable
		}
	}
	return false
}

func (f *facts) label(table string) string {
	if column, ok := labelColumns[strings.ToLower(table)]; ok && f.desc.HasColumn(table, column) {
		return column
	}
	return "*"
}

func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
