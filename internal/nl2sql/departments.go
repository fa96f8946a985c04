package nl2sql

// DepartmentAlias maps spoken department names (pt/en, accents allowed) to
// the stored dept_name value.
type DepartmentAlias struct {
	Name    string
	Phrases []string
}

func DefaultDepartments() []DepartmentAlias {
	return []DepartmentAlias{
		{Name: "Computer Science", Phrases: []string{"ciência da computação", "ciências da computação", "computer science", "comp sci", "computação", "computing"}},
		{Name: "Elec. Eng.", Phrases: []string{"engenharia elétrica", "electrical engineering", "elec eng"}},
		{Name: "Physics", Phrases: []string{"física", "physics"}},
		{Name: "Math", Phrases: []string{"matemática", "mathematics", "math"}},
		{Name: "Finance", Phrases: []string{"economia", "economics", "finanças", "finance"}},
		{Name: "Biology", Phrases: []string{"biologia", "biology"}},
		{Name: "History", Phrases: []string{"história", "history"}},
		{Name: "Music", Phrases: []string{"música", "music"}},
	}
}
