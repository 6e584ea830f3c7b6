// Package sqlschema is the table-definition surface generated schema
// artifacts are written against. A generated file declares one Table per
// package; the schema index aggregates them for the storage collaborator.
package sqlschema

import (
	"fmt"
	"strings"
)

// Column storage types.
const (
	TypeInteger = "INTEGER"
	TypeText    = "TEXT"
	TypeReal    = "REAL"
)

type Table struct {
	Name    string
	Columns []*Column
}

type Ref struct {
	// Table is nil for a self-reference; the owning table resolves it.
	Table    *Table
	Column   string
	OnDelete string
	Self     bool
}

type Column struct {
	Name      string
	Type      string
	LogicBool bool // INTEGER-backed column carrying boolean values

	Primary  bool
	AutoIncr bool
	Required bool

	HasDefault bool
	DefaultVal any

	FK *Ref
}

// NewTable assembles a table from column builders.
func NewTable(name string, cols ...*Column) *Table {
	return &Table{Name: name, Columns: cols}
}

func Integer(name string) *Column { return &Column{Name: name, Type: TypeInteger} }
func Text(name string) *Column    { return &Column{Name: name, Type: TypeText} }
func Real(name string) *Column    { return &Column{Name: name, Type: TypeReal} }

// Boolean is stored as INTEGER with a logical-boolean annotation, so the
// runtime can normalize 0/1 back to bool.
func Boolean(name string) *Column {
	return &Column{Name: name, Type: TypeInteger, LogicBool: true}
}

func (c *Column) PrimaryKey() *Column {
	c.Primary = true
	return c
}

func (c *Column) AutoIncrement() *Column {
	c.AutoIncr = true
	return c
}

func (c *Column) NotNull() *Column {
	c.Required = true
	return c
}

func (c *Column) Default(v any) *Column {
	c.HasDefault = true
	c.DefaultVal = v
	return c
}

// References declares a foreign key into another table's column.
func (c *Column) References(t *Table, column string, onDelete ...string) *Column {
	ref := &Ref{Table: t, Column: column}
	if len(onDelete) > 0 {
		ref.OnDelete = onDelete[0]
	}
	c.FK = ref
	return c
}

// SelfReference declares a foreign key into the owning table itself.
// A generated file cannot reference its own Table var during
// initialization, so self-references resolve lazily by name.
func (c *Column) SelfReference(column string, onDelete ...string) *Column {
	ref := &Ref{Column: column, Self: true}
	if len(onDelete) > 0 {
		ref.OnDelete = onDelete[0]
	}
	c.FK = ref
	return c
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// BoolColumns returns the names of logical-boolean columns.
func (t *Table) BoolColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.LogicBool {
			out = append(out, c.Name)
		}
	}
	return out
}

// CreateSQL renders a CREATE TABLE statement for the table. The external
// migration tool owns real migrations; this exists for inspection and
// tests of the generated definitions.
func (t *Table) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, c.def(t))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", t.Name, strings.Join(defs, ",\n  "))
}

func (c *Column) def(owner *Table) string {
	d := c.Name + " " + c.Type
	if c.Primary {
		d += " PRIMARY KEY"
		if c.AutoIncr {
			d += " AUTOINCREMENT"
		}
	}
	if c.Required {
		d += " NOT NULL"
	}
	if c.HasDefault {
		switch v := c.DefaultVal.(type) {
		case string:
			d += fmt.Sprintf(" DEFAULT '%s'", v)
		case bool:
			if v {
				d += " DEFAULT 1"
			} else {
				d += " DEFAULT 0"
			}
		default:
			d += fmt.Sprintf(" DEFAULT %v", v)
		}
	}
	if c.FK != nil {
		target := owner.Name
		if !c.FK.Self && c.FK.Table != nil {
			target = c.FK.Table.Name
		}
		d += fmt.Sprintf(" REFERENCES %s(%s)", target, c.FK.Column)
		if c.FK.OnDelete != "" {
			d += " ON DELETE " + strings.ToUpper(c.FK.OnDelete)
		}
	}
	return d
}
