package schema

import (
	"fmt"
	"sort"
	"strings"
)

// LiveColumns maps lowercased table names to the lowercased column names a
// database reports.
type LiveColumns map[string][]string

// Drift lists registry elements the live database does not have.
type Drift struct {
	MissingTables  []string `json:"missing_tables,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

func (d Drift) Empty() bool {
	return len(d.MissingTables) == 0 && len(d.MissingColumns) == 0
}

// Size is the number of missing tables plus missing columns.
func (d Drift) Size() int {
	return len(d.MissingTables) + len(d.MissingColumns)
}

func (d Drift) String() string {
	if d.Empty() {
		return "no drift"
	}
	parts := make([]string, 0, 2)
	if len(d.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(d.MissingTables, ", "))
	}
	if len(d.MissingColumns) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(d.MissingColumns, ", "))
	}
	return strings.Join(parts, "; ")
}

// Diff compares the description with the live database. Columns of a missing
// table are not reported separately. Extra live tables are ignored.
func (d Description) Diff(live LiveColumns) Drift {
	var drift Drift
	for _, table := range d.Tables {
		columns, ok := live[strings.ToLower(table.Name)]
		if !ok {
			drift.MissingTables = append(drift.MissingTables, table.Name)
			continue
		}
		present := make(map[string]struct{}, len(columns))
		for _, column := range columns {
			present[strings.ToLower(column)] = struct{}{}
		}
		for _, column := range table.Columns {
			if _, ok := present[strings.ToLower(column.Name)]; !ok {
				drift.MissingColumns = append(drift.MissingColumns, table.Name+"."+column.Name)
			}
		}
	}
	sort.Strings(drift.MissingTables)
	sort.Strings(drift.MissingColumns)
	return drift
}

// DriftError is returned when strict schema checking finds drift.
type DriftError struct {
	Drift Drift
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("schema mismatch: %s", e.Drift)
}
