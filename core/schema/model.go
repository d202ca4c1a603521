package schema

import (
	"fmt"
	"strings"

	"github.com/danielafriyie/raccy-orm/core/convention"
	"github.com/danielafriyie/raccy-orm/core/errs"
)

// NamedField pairs a field with the name it was declared under.
type NamedField struct {
	Name  string
	Field Field
}

// Schema is the immutable description of one model: its ordered fields,
// table and abstract flag. Build one with Model(...).Build().
type Schema struct {
	name     string
	table    string
	abstract bool
	parent   *Schema
	fields   []NamedField
	index    map[string]int
}

// Name returns the declared model name.
func (s *Schema) Name() string { return s.name }

// Table returns the table name. Abstract schemas have none.
func (s *Schema) Table() string { return s.table }

// IsAbstract reports whether the schema is a field template only.
func (s *Schema) IsAbstract() bool { return s.abstract }

// Parent returns the abstract schema this one extends, if any.
func (s *Schema) Parent() *Schema { return s.parent }

// PrimaryKey returns the primary key field name, or "" for abstract schemas.
func (s *Schema) PrimaryKey() string {
	if s.abstract {
		return ""
	}
	return convention.PrimaryKey
}

// Fields returns all fields in table order, primary key first.
func (s *Schema) Fields() []NamedField {
	return append([]NamedField(nil), s.fields...)
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].Field, true
}

// FieldNames returns all field names in table order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Columns returns the names of the writable fields (all but the primary key).
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		if f.Field.Type == TypePrimaryKey {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

// ForeignKeys returns the foreign key fields in declaration order.
func (s *Schema) ForeignKeys() []NamedField {
	var fks []NamedField
	for _, f := range s.fields {
		if f.Field.Type == TypeForeignKey {
			fks = append(fks, f)
		}
	}
	return fks
}

// String implements fmt.Stringer.
func (s *Schema) String() string {
	if s.abstract {
		return fmt.Sprintf("%s (abstract)", s.name)
	}
	return fmt.Sprintf("%s (%s)", s.name, s.table)
}

// Builder assembles a Schema. It is used once per model definition.
type Builder struct {
	name     string
	abstract bool
	parent   *Schema
	fields   []NamedField
}

// Model starts the definition of a model.
func Model(name string) *Builder {
	return &Builder{name: name}
}

// Abstract marks the model as a field template: it never gets a table and
// is never queryable.
func (b *Builder) Abstract() *Builder {
	b.abstract = true
	return b
}

// Extends inherits the fields of an abstract schema. Inherited fields come
// first, in the parent's order.
func (b *Builder) Extends(parent *Schema) *Builder {
	b.parent = parent
	return b
}

// Field declares a field. Declaration order is preserved.
func (b *Builder) Field(name string, f Field) *Builder {
	b.fields = append(b.fields, NamedField{Name: name, Field: f})
	return b
}

// Name returns the model name being built.
func (b *Builder) Name() string { return b.name }

// Build validates the definition and produces the schema.
func (b *Builder) Build() (*Schema, error) {
	var problems []string

	if !convention.IsValidIdentifier(b.name) {
		problems = append(problems, fmt.Sprintf("model name %q is not a valid identifier", b.name))
	}

	if b.parent != nil && !b.parent.abstract {
		problems = append(problems, fmt.Sprintf("cannot extend concrete model %q", b.parent.name))
	}

	seen := make(map[string]bool, len(b.fields))
	for _, nf := range b.fields {
		switch {
		case convention.IsReserved(nf.Name):
			problems = append(problems, fmt.Sprintf("field name %q is reserved", nf.Name))
		case !convention.IsValidIdentifier(nf.Name):
			problems = append(problems, fmt.Sprintf("field name %q is not a valid identifier", nf.Name))
		case seen[nf.Name]:
			problems = append(problems, fmt.Sprintf("field %q declared twice", nf.Name))
		case nf.Field.Type == TypePrimaryKey:
			problems = append(problems, fmt.Sprintf("field %q: primary key is implicit", nf.Name))
		}
		seen[nf.Name] = true

		if msg := nf.Field.problem(); msg != "" {
			problems = append(problems, fmt.Sprintf("field %q: %s", nf.Name, msg))
		}
	}

	if len(problems) > 0 {
		return nil, errs.Configf("model %q:\n  - %s", b.name, strings.Join(problems, "\n  - "))
	}

	s := &Schema{
		name:     b.name,
		abstract: b.abstract,
		parent:   b.parent,
	}

	var merged []NamedField
	if !b.abstract {
		s.table = convention.TableName(b.name)
		merged = append(merged, NamedField{Name: convention.PrimaryKey, Field: PrimaryKey()})
	}
	if b.parent != nil {
		for _, nf := range b.parent.fields {
			if nf.Field.Type == TypePrimaryKey {
				continue
			}
			merged = append(merged, nf)
		}
	}
	for _, nf := range b.fields {
		if i := indexOf(merged, nf.Name); i >= 0 {
			merged[i] = nf
			continue
		}
		merged = append(merged, nf)
	}

	s.fields = merged
	s.index = make(map[string]int, len(merged))
	for i, nf := range merged {
		s.index[nf.Name] = i
	}

	return s, nil
}

// MustBuild is Build that panics on error. Intended for package-level
// model declarations.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func indexOf(fields []NamedField, name string) int {
	for i, nf := range fields {
		if nf.Name == name {
			return i
		}
	}
	return -1
}
