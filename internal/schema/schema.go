package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeNumeric ColumnType = "numeric"
	TypeText    ColumnType = "text"
	TypeDate    ColumnType = "date"
	TypeBoolean ColumnType = "boolean"
)

type Column struct {
	Name        string     `json:"name" yaml:"name"`
	Type        ColumnType `json:"type" yaml:"type"`
	Nullable    bool       `json:"nullable" yaml:"nullable"`
	PrimaryKey  bool       `json:"primary_key,omitempty" yaml:"primary_key"`
	Description string     `json:"description,omitempty" yaml:"description"`
}

type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

type Table struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

func (t Table) Column(name string) (Column, bool) {
	for _, column := range t.Columns {
		if strings.EqualFold(column.Name, name) {
			return column, true
		}
	}
	return Column{}, false
}

func (t Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

// Description is the ordered, read-only view of the configured tables.
// Values handed out by a Registry must not be mutated.
type Description struct {
	Tables []Table `json:"tables"`
}

func (d Description) Table(name string) (Table, bool) {
	for _, table := range d.Tables {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return Table{}, false
}

func (d Description) HasTable(name string) bool {
	_, ok := d.Table(name)
	return ok
}

func (d Description) HasColumn(tableName, columnName string) bool {
	table, ok := d.Table(tableName)
	if !ok {
		return false
	}
	return table.HasColumn(columnName)
}

func (d Description) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, table := range d.Tables {
		names = append(names, table.Name)
	}
	return names
}

// JoinCondition returns the equality predicate linking two tables through a
// foreign key declared on either side.
func (d Description) JoinCondition(a, b string) (string, bool) {
	if fk, ok := d.foreignKey(a, b); ok {
		return fmt.Sprintf("%s.%s = %s.%s", a, fk.Column, b, fk.RefColumn), true
	}
	if fk, ok := d.foreignKey(b, a); ok {
		return fmt.Sprintf("%s.%s = %s.%s", b, fk.Column, a, fk.RefColumn), true
	}
	return "", false
}

func (d Description) foreignKey(from, to string) (ForeignKey, bool) {
	table, ok := d.Table(from)
	if !ok {
		return ForeignKey{}, false
	}
	for _, fk := range table.ForeignKeys {
		if strings.EqualFold(fk.RefTable, to) {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// Linearize renders the schema as compact text for model prompts.
func (d Description) Linearize() string {
	var b strings.Builder
	for _, table := range d.Tables {
		b.WriteString(table.Name)
		b.WriteString("(")
		for i, column := range table.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(column.Name)
			b.WriteString(" ")
			b.WriteString(string(column.Type))
			if column.PrimaryKey {
				b.WriteString(" primary key")
			}
		}
		b.WriteString(")")
		for _, fk := range table.ForeignKeys {
			b.WriteString(fmt.Sprintf(" %s.%s -> %s.%s", table.Name, fk.Column, fk.RefTable, fk.RefColumn))
		}
		if table.Description != "" {
			b.WriteString(" -- ")
			b.WriteString(table.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d Description) Fingerprint() string {
	return strconv.FormatUint(xxh3.HashString(d.Linearize()), 16)
}

func (d Description) clone() Description {
	tables := make([]Table, 0, len(d.Tables))
	for _, table := range d.Tables {
		copied := table
		copied.Columns = append([]Column(nil), table.Columns...)
		copied.ForeignKeys = append([]ForeignKey(nil), table.ForeignKeys...)
		tables = append(tables, copied)
	}
	return Description{Tables: tables}
}
