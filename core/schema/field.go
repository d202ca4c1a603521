package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danielafriyie/raccy-orm/core/errs"
)

// FieldType is the semantic type of a column.
type FieldType string

const (
	TypePrimaryKey FieldType = "primary_key"
	TypeChar       FieldType = "char"
	TypeText       FieldType = "text"
	TypeInteger    FieldType = "integer"
	TypeFloat      FieldType = "float"
	TypeBoolean    FieldType = "boolean"
	TypeDate       FieldType = "date"
	TypeDateTime   FieldType = "datetime"
	TypeForeignKey FieldType = "foreign_key"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypePrimaryKey, TypeChar, TypeText, TypeInteger, TypeFloat,
		TypeBoolean, TypeDate, TypeDateTime, TypeForeignKey:
		return true
	}
	return false
}

// Field declares one column. Fields are values: copying one never shares
// state with the schema that owns it.
type Field struct {
	// Type is the semantic type tag.
	Type FieldType

	// Null allows NULL values. Columns are nullable unless NotNull is given,
	// except foreign keys which default to NOT NULL.
	Null bool

	// Default is rendered into the column definition. Use Raw for a
	// verbatim SQL expression.
	Default any

	// MaxLength bounds char fields.
	MaxLength int

	// To is the referenced model of a foreign key.
	To *Schema

	// OnField is the referenced column of a foreign key.
	OnField string
}

// Raw is a default value rendered verbatim into DDL.
type Raw string

// Option adjusts a field at construction.
type Option func(*Field)

// NotNull adds a NOT NULL constraint.
func NotNull() Option {
	return func(f *Field) { f.Null = false }
}

// Nullable removes the NOT NULL constraint.
func Nullable() Option {
	return func(f *Field) { f.Null = true }
}

// Default sets the column default.
func Default(v any) Option {
	return func(f *Field) { f.Default = v }
}

func newField(t FieldType, opts []Option) Field {
	f := Field{Type: t, Null: true}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// PrimaryKey is the implicit auto-incrementing key.
func PrimaryKey() Field {
	return Field{Type: TypePrimaryKey}
}

// Char is a bounded string column. maxLength must be positive.
func Char(maxLength int, opts ...Option) Field {
	f := newField(TypeChar, opts)
	f.MaxLength = maxLength
	return f
}

// Text is an unbounded string column.
func Text(opts ...Option) Field { return newField(TypeText, opts) }

// Integer is a signed integer column.
func Integer(opts ...Option) Field { return newField(TypeInteger, opts) }

// Float is a double precision column.
func Float(opts ...Option) Field { return newField(TypeFloat, opts) }

// Boolean is a true/false column.
func Boolean(opts ...Option) Field { return newField(TypeBoolean, opts) }

// Date is a calendar date column.
func Date(opts ...Option) Field { return newField(TypeDate, opts) }

// DateTime is a timestamp column.
func DateTime(opts ...Option) Field { return newField(TypeDateTime, opts) }

// ForeignKey references onField of a concrete target model. The column is
// NOT NULL unless Nullable is given.
func ForeignKey(target *Schema, onField string, opts ...Option) Field {
	f := Field{Type: TypeForeignKey, To: target, OnField: onField}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Validate checks construction arguments.
func (f Field) Validate() error {
	if msg := f.problem(); msg != "" {
		return errs.Configf("%s", msg)
	}
	return nil
}

func (f Field) problem() string {
	switch f.Type {
	case TypeChar:
		if f.MaxLength <= 0 {
			return fmt.Sprintf("char field requires a positive max length, got %d", f.MaxLength)
		}
	case TypeForeignKey:
		if f.To == nil {
			return "foreign key requires a target model"
		}
		if f.To.IsAbstract() {
			return fmt.Sprintf("foreign key target %q is abstract", f.To.Name())
		}
		if _, ok := f.To.Field(f.OnField); !ok {
			return fmt.Sprintf("foreign key target %q has no field %q", f.To.Name(), f.OnField)
		}
	default:
		if !f.Type.Valid() {
			return fmt.Sprintf("unknown field type %q", f.Type)
		}
	}

	if _, raw := f.Default.(Raw); f.Default != nil && !raw {
		if _, err := f.Coerce(f.Default); err != nil {
			return fmt.Sprintf("invalid default %#v: %v", f.Default, err)
		}
	}
	return ""
}

// SQLType returns the column type on the embedded single-file engine.
func (f Field) SQLType() string {
	switch f.Type {
	case TypePrimaryKey:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	case TypeChar:
		return "VARCHAR"
	case TypeText:
		return "TEXT"
	case TypeInteger, TypeForeignKey:
		return "INTEGER"
	case TypeFloat:
		return "DOUBLE"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// SQL returns the column definition on the embedded single-file engine,
// e.g. "VARCHAR (60)" or "INTEGER DEFAULT 150".
func (f Field) SQL() string {
	return f.Definition(f.SQLType())
}

// Definition renders the column definition for a dialect-specific type
// name. The primary key type is taken verbatim.
func (f Field) Definition(sqlType string) string {
	if f.Type == TypePrimaryKey {
		return sqlType
	}

	parts := []string{sqlType}
	if f.Type == TypeChar {
		parts[0] = fmt.Sprintf("%s (%d)", sqlType, f.MaxLength)
	}
	if !f.Null {
		parts = append(parts, "NOT NULL")
	}
	if f.Default != nil {
		if def := formatDefault(f.Default); def != "" {
			parts = append(parts, "DEFAULT "+def)
		}
	}
	return strings.Join(parts, " ")
}

// ForeignKeySQL renders the table constraint for a foreign key declared
// under the local column name.
func (f Field) ForeignKeySQL(local string) string {
	if f.Type != TypeForeignKey || f.To == nil {
		return ""
	}
	return fmt.Sprintf(
		"\nFOREIGN KEY (%s)\nREFERENCES %s (%s) \n    ON UPDATE CASCADE\n    ON DELETE CASCADE\n",
		local, f.To.Table(), f.OnField,
	)
}

// formatDefault formats a default value for DDL.
func formatDefault(val any) string {
	switch v := val.(type) {
	case Raw:
		return string(v)
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return fmt.Sprintf("'%s'", v.Format(time.RFC3339))
	default:
		return ""
	}
}

// Coerce converts a Go value into the field's canonical Go type: int64 for
// integer-like fields, float64, string, bool, or time.Time. Date and
// datetime fields also accept strings such as "2006-01-02",
// "2006-01-02 15:04:05" and RFC 3339. Timestamps are normalized to UTC at
// microsecond precision with no monotonic reading; dates to midnight UTC.
// nil passes through unchanged.
func (f Field) Coerce(val any) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch f.Type {
	case TypePrimaryKey, TypeInteger, TypeForeignKey:
		if n, ok := toInt64(val); ok {
			return n, nil
		}
	case TypeFloat:
		if n, ok := toInt64(val); ok {
			return float64(n), nil
		}
		switch v := val.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		}
	case TypeChar, TypeText:
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return nil, fmt.Errorf("cannot use %T as %s", val, f.Type)
		}
		if f.Type == TypeChar && f.MaxLength > 0 && len([]rune(s)) > f.MaxLength {
			return nil, fmt.Errorf("value exceeds max length %d", f.MaxLength)
		}
		return s, nil
	case TypeBoolean:
		switch v := val.(type) {
		case bool:
			return v, nil
		default:
			if n, ok := toInt64(val); ok && (n == 0 || n == 1) {
				return n == 1, nil
			}
		}
	case TypeDate, TypeDateTime:
		var t time.Time
		switch v := val.(type) {
		case time.Time:
			t = v
		case string:
			parsed, err := parseTime(v)
			if err != nil {
				return nil, err
			}
			t = parsed
		case []byte:
			parsed, err := parseTime(string(v))
			if err != nil {
				return nil, err
			}
			t = parsed
		default:
			return nil, fmt.Errorf("cannot use %T as %s", val, f.Type)
		}
		if f.Type == TypeDate {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		return t.UTC().Truncate(time.Microsecond), nil
	}

	return nil, fmt.Errorf("cannot use %T as %s", val, f.Type)
}

// timeLayouts are the accepted string forms of dates and timestamps,
// including the ones the drivers write.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime parses s in the first matching layout. Strings without a
// zone are taken as UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or timestamp", s)
}

func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}
