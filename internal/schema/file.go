package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Tables []fileTable `yaml:"tables"`
}

type fileTable struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Columns     []Column         `yaml:"columns"`
	ForeignKeys []fileForeignKey `yaml:"foreign_keys"`
}

type fileForeignKey struct {
	Column     string `yaml:"column"`
	References string `yaml:"references"`
}

func LoadFile(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Description, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Description{}, fmt.Errorf("parse schema file: %w", err)
	}

	desc := Description{Tables: make([]Table, 0, len(doc.Tables))}
	for _, ft := range doc.Tables {
		table := Table{
			Name:        strings.TrimSpace(ft.Name),
			Description: strings.TrimSpace(ft.Description),
			Columns:     make([]Column, 0, len(ft.Columns)),
		}
		for _, column := range ft.Columns {
			column.Name = strings.TrimSpace(column.Name)
			if column.Type == "" {
				column.Type = TypeText
			}
			table.Columns = append(table.Columns, column)
		}
		for _, fk := range ft.ForeignKeys {
			refTable, refColumn, ok := strings.Cut(strings.TrimSpace(fk.References), ".")
			if !ok || refTable == "" || refColumn == "" {
				return Description{}, fmt.Errorf("table %q: invalid foreign key reference %q, expected table.column", ft.Name, fk.References)
			}
			table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
				Column:    strings.TrimSpace(fk.Column),
				RefTable:  refTable,
				RefColumn: refColumn,
			})
		}
		desc.Tables = append(desc.Tables, table)
	}
	return desc, nil
}
