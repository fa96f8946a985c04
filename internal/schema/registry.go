package schema

import (
	"fmt"
	"strings"
)

type Registry struct {
	desc        Description
	fingerprint string
}

func NewRegistry(desc Description) (*Registry, error) {
	if err := validateDescription(desc); err != nil {
		return nil, err
	}
	owned := desc.clone()
	return &Registry{desc: owned, fingerprint: owned.Fingerprint()}, nil
}

// Describe returns the loaded schema. The result shares backing arrays with
// the registry and is read-only.
func (r *Registry) Describe() Description {
	return r.desc
}

func (r *Registry) Fingerprint() string {
	return r.fingerprint
}

func validateDescription(desc Description) error {
	if len(desc.Tables) == 0 {
		return fmt.Errorf("schema has no tables")
	}
	seenTables := make(map[string]struct{}, len(desc.Tables))
	for _, table := range desc.Tables {
		name := strings.ToLower(strings.TrimSpace(table.Name))
		if name == "" {
			return fmt.Errorf("table name is required")
		}
		if _, ok := seenTables[name]; ok {
			return fmt.Errorf("duplicate table %q", table.Name)
		}
		seenTables[name] = struct{}{}
		if len(table.Columns) == 0 {
			return fmt.Errorf("table %q has no columns", table.Name)
		}
		seenColumns := make(map[string]struct{}, len(table.Columns))
		for _, column := range table.Columns {
			columnName := strings.ToLower(strings.TrimSpace(column.Name))
			if columnName == "" {
				return fmt.Errorf("table %q has a column without a name", table.Name)
			}
			if _, ok := seenColumns[columnName]; ok {
				return fmt.Errorf("table %q has duplicate column %q", table.Name, column.Name)
			}
			seenColumns[columnName] = struct{}{}
		}
	}
	for _, table := range desc.Tables {
		for _, fk := range table.ForeignKeys {
			if !table.HasColumn(fk.Column) {
				return fmt.Errorf("foreign key on %q references unknown column %q", table.Name, fk.Column)
			}
			if !desc.HasColumn(fk.RefTable, fk.RefColumn) {
				return fmt.Errorf("foreign key %s.%s references unknown column %s.%s", table.Name, fk.Column, fk.RefTable, fk.RefColumn)
			}
		}
	}
	return nil
}
