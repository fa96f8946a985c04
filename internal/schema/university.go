package schema

// University returns the built-in university schema used when no schema file
// is configured.
func University() Description {
	return Description{Tables: []Table{
		{
			Name:        "student",
			Description: "students enrolled at the university",
			Columns: []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "name", Type: TypeText},
				{Name: "dept_name", Type: TypeText, Nullable: true},
				{Name: "tot_cred", Type: TypeInteger, Description: "total credits earned"},
			},
			ForeignKeys: []ForeignKey{{Column: "dept_name", RefTable: "department", RefColumn: "dept_name"}},
		},
		{
			Name:        "instructor",
			Description: "teaching staff",
			Columns: []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "name", Type: TypeText},
				{Name: "dept_name", Type: TypeText, Nullable: true},
				{Name: "salary", Type: TypeNumeric},
			},
			ForeignKeys: []ForeignKey{{Column: "dept_name", RefTable: "department", RefColumn: "dept_name"}},
		},
		{
			Name:        "course",
			Description: "course catalog",
			Columns: []Column{
				{Name: "course_id", Type: TypeText, PrimaryKey: true},
				{Name: "title", Type: TypeText},
				{Name: "dept_name", Type: TypeText, Nullable: true},
				{Name: "credits", Type: TypeInteger},
			},
			ForeignKeys: []ForeignKey{{Column: "dept_name", RefTable: "department", RefColumn: "dept_name"}},
		},
		{
			Name:        "takes",
			Description: "enrollments and final grades, links student to course",
			Columns: []Column{
				{Name: "id", Type: TypeInteger},
				{Name: "course_id", Type: TypeText},
				{Name: "sec_id", Type: TypeText},
				{Name: "semester", Type: TypeText},
				{Name: "year", Type: TypeInteger},
				{Name: "grade", Type: TypeNumeric, Nullable: true, Description: "0-10, null when not graded"},
			},
			ForeignKeys: []ForeignKey{
				{Column: "id", RefTable: "student", RefColumn: "id"},
				{Column: "course_id", RefTable: "course", RefColumn: "course_id"},
			},
		},
		{
			Name:        "department",
			Description: "academic departments",
			Columns: []Column{
				{Name: "dept_name", Type: TypeText, PrimaryKey: true},
				{Name: "building", Type: TypeText},
				{Name: "budget", Type: TypeNumeric},
			},
		},
	}}
}
