package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielafriyie/raccy-orm/core/convention"
	"github.com/danielafriyie/raccy-orm/core/errs"
	"gopkg.in/yaml.v3"
)

// Declaration is a model definition read from YAML.
type Declaration struct {
	// Name is the model name.
	Name string `yaml:"model"`

	// Abstract marks a field template.
	Abstract bool `yaml:"abstract,omitempty"`

	// Extends names an abstract model to inherit fields from.
	Extends string `yaml:"extends,omitempty"`

	// Fields in declaration order.
	Fields FieldDecls `yaml:"fields"`
}

// FieldDecl is one field of a Declaration.
type FieldDecl struct {
	Name      string    `yaml:"-"`
	Type      FieldType `yaml:"type"`
	MaxLength int       `yaml:"max_length,omitempty"`
	Null      *bool     `yaml:"null,omitempty"`
	Default   any       `yaml:"default,omitempty"`
	To        string    `yaml:"to,omitempty"`
	On        string    `yaml:"on,omitempty"`
}

// FieldDecls keeps the mapping order of the YAML source.
type FieldDecls []FieldDecl

// UnmarshalYAML decodes a mapping of field name to field declaration.
func (d *FieldDecls) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", value.Line)
	}

	out := make(FieldDecls, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		var fd FieldDecl
		if err := val.Decode(&fd); err != nil {
			return fmt.Errorf("field %q: %w", key.Value, err)
		}
		fd.Name = key.Value
		out = append(out, fd)
	}

	*d = out
	return nil
}

// ParseFile parses a model declaration from a YAML file.
func ParseFile(path string) (Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Declaration{}, fmt.Errorf("read file %s: %w", path, err)
	}

	decl, err := Parse(data)
	if err != nil {
		return Declaration{}, fmt.Errorf("%s: %w", path, err)
	}
	return decl, nil
}

// Parse parses a model declaration from YAML bytes.
func Parse(data []byte) (Declaration, error) {
	var decl Declaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return Declaration{}, fmt.Errorf("parse yaml: %w", err)
	}

	if decl.Name == "" {
		return Declaration{}, errs.Configf("model name is required")
	}
	for _, fd := range decl.Fields {
		if !fd.Type.Valid() || fd.Type == TypePrimaryKey {
			return Declaration{}, errs.Configf("model %q field %q: invalid type %q", decl.Name, fd.Name, fd.Type)
		}
	}

	return decl, nil
}

// ParseDir parses all declarations from a directory, including
// subdirectories. Files are visited in lexical order.
func ParseDir(dir string) ([]Declaration, error) {
	var decls []Declaration

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			decls = append(decls, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		decl, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}

	return decls, nil
}

// Resolve builds schemas from declarations, parents and foreign key
// targets first. The result preserves input order among independent
// declarations.
func Resolve(decls []Declaration) ([]*Schema, error) {
	built := make(map[string]*Schema, len(decls))
	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		if declared[d.Name] {
			return nil, errs.Configf("model %q declared twice", d.Name)
		}
		declared[d.Name] = true
	}

	var out []*Schema
	pending := decls
	for len(pending) > 0 {
		var next []Declaration
		for _, d := range pending {
			if !d.ready(built) {
				next = append(next, d)
				continue
			}
			s, err := d.Builder(built).Build()
			if err != nil {
				return nil, err
			}
			built[d.Name] = s
			out = append(out, s)
		}

		if len(next) == len(pending) {
			names := make([]string, len(next))
			for i, d := range next {
				names[i] = d.Name
			}
			return nil, errs.Configf("unresolved model references in %s", strings.Join(names, ", "))
		}
		pending = next
	}

	return out, nil
}

func (d Declaration) ready(built map[string]*Schema) bool {
	if d.Extends != "" && built[d.Extends] == nil {
		return false
	}
	for _, fd := range d.Fields {
		if fd.Type == TypeForeignKey && built[fd.To] == nil {
			return false
		}
	}
	return true
}

// Builder converts the declaration into a schema builder, looking up
// parents and foreign key targets in built.
func (d Declaration) Builder(built map[string]*Schema) *Builder {
	b := Model(d.Name)
	if d.Abstract {
		b.Abstract()
	}
	if d.Extends != "" {
		b.Extends(built[d.Extends])
	}
	for _, fd := range d.Fields {
		b.Field(fd.Name, fd.field(built))
	}
	return b
}

func (fd FieldDecl) field(built map[string]*Schema) Field {
	var opts []Option
	if fd.Null != nil {
		if *fd.Null {
			opts = append(opts, Nullable())
		} else {
			opts = append(opts, NotNull())
		}
	}
	if fd.Default != nil {
		opts = append(opts, Default(fd.Default))
	}

	switch fd.Type {
	case TypeChar:
		return Char(fd.MaxLength, opts...)
	case TypeForeignKey:
		on := fd.On
		if on == "" {
			on = convention.PrimaryKey
		}
		return ForeignKey(built[fd.To], on, opts...)
	default:
		return newField(fd.Type, opts)
	}
}
