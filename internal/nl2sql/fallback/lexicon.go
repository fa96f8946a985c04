package fallback

// Phrases are stored normalized: lowercase, no accents, single spaces.

var entitySynonyms = map[string][]string{
	"student": {
		"estudante", "estudantes", "aluno", "alunos", "aluna", "alunas", "discente", "discentes",
		"student", "students", "pupil", "pupils",
	},
	"instructor": {
		"professor", "professores", "professora", "professoras", "docente", "docentes",
		"instrutor", "instrutores", "instructor", "instructors", "teacher", "teachers",
		"faculty", "lecturer", "lecturers",
	},
	"course": {
		"curso", "cursos", "disciplina", "disciplinas", "materia", "materias",
		"course", "courses", "class", "classes", "subject", "subjects",
	},
	"department": {
		"departamento", "departamentos", "depto", "department", "departments", "dept",
	},
	"takes": {
		"matricula", "matriculas", "inscricao", "inscricoes", "enrollment", "enrollments",
		"enrolment", "enrolments",
	},
}

type attributeKind string

const (
	attrSalary  attributeKind = "salary"
	attrCredits attributeKind = "credits"
	attrBudget  attributeKind = "budget"
	attrGrade   attributeKind = "grade"
)

type columnRef struct {
	table  string
	column string
}

type attributeTerms struct {
	kind    attributeKind
	phrases []string
	// owners are tried in order after the primary entity's own column.
	owners []columnRef
}

var attributes = []attributeTerms{
	{
		kind:    attrSalary,
		phrases: []string{"salario", "salarios", "remuneracao", "ganha", "ganham", "salary", "salaries", "pay", "paid", "earns"},
		owners:  []columnRef{{"instructor", "salary"}},
	},
	{
		kind:    attrCredits,
		phrases: []string{"credito", "creditos", "credit", "credits"},
		owners:  []columnRef{{"student", "tot_cred"}, {"course", "credits"}},
	},
	{
		kind:    attrBudget,
		phrases: []string{"orcamento", "orcamentos", "verba", "budget", "budgets"},
		owners:  []columnRef{{"department", "budget"}},
	},
	{
		kind:    attrGrade,
		phrases: []string{"nota", "notas", "grade", "grades", "score", "scores"},
		owners:  []columnRef{{"takes", "grade"}},
	},
}

// labelColumns name the column shown when a row is picked out.
var labelColumns = map[string]string{
	"student":    "name",
	"instructor": "name",
	"course":     "title",
	"department": "dept_name",
}

type thresholdTerms struct {
	op      string
	phrases []string
}

var thresholds = []thresholdTerms{
	{op: ">=", phrases: []string{"pelo menos", "no minimo", "at least", "a minimum of"}},
	{op: "<=", phrases: []string{"no maximo", "at most", "a maximum of"}},
	{op: ">", phrases: []string{
		"mais de", "mais que", "mais do que", "acima de", "superior a", "maior que", "maior do que",
		"more than", "greater than", "higher than", "over", "above", "exceeding",
	}},
	{op: "<", phrases: []string{
		"menos de", "menos que", "menos do que", "abaixo de", "inferior a", "menor que", "menor do que",
		"less than", "fewer than", "lower than", "under", "below",
	}},
}

var (
	countTerms = []string{
		"quantos", "quantas", "quantidade", "numero de", "total de", "contar", "conte",
		"how many", "count", "number of", "total number",
	}
	averageTerms = []string{
		"media", "medio", "media de", "average", "avg", "mean",
	}
	// "tem mais" and friends only count once numeric thresholds such as
	// "mais de 10" have been cut from the intent text.
	maxTerms = []string{
		"maior", "maiores", "mais alto", "mais alta", "maximo", "maxima",
		"tem mais", "com mais", "ganha mais", "ganham mais",
		"highest", "largest", "biggest", "maximum", "max", "top", "best",
	}
	minTerms = []string{
		"menor", "menores", "mais baixo", "mais baixa", "minimo", "minima",
		"tem menos", "com menos", "ganha menos", "ganham menos",
		"lowest", "smallest", "minimum", "min", "worst",
	}
	listTerms = []string{
		"liste", "listar", "lista", "mostre", "mostrar", "exiba", "exibir", "quais", "qual", "todos", "todas",
		"list", "show", "display", "which", "what", "all", "names", "nomes",
	}
	byDepartmentTerms = []string{
		"por departamento", "por depto", "em cada departamento", "de cada departamento", "cada departamento",
		"by department", "per department", "each department", "by dept", "per dept",
	}
)
