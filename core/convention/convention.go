// Package convention derives names from minimal model declarations.
// It owns the implicit primary-key name and the table naming rule.
package convention

import "strings"

// PrimaryKey is the name of the implicit auto-incrementing key every
// concrete model carries. Application fields may not use it.
const PrimaryKey = "pk"

// TableName derives the table name for a model: its declared name,
// lower-cased.
func TableName(model string) string {
	return strings.ToLower(model)
}

// IsReserved reports whether a field name is reserved by the ORM.
func IsReserved(field string) bool {
	return field == PrimaryKey
}

// IsValidIdentifier checks that a name is safe to use as a SQL identifier
// without quoting: a letter or underscore followed by letters, digits or
// underscores, and not a reserved word of any supported engine.
func IsValidIdentifier(s string) bool {
	if s == "" || IsKeyword(s) {
		return false
	}
	for i, c := range s {
		if i == 0 && !isLetter(c) && c != '_' {
			return false
		}
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

// IsKeyword reports whether s is a reserved SQL word that cannot appear
// unquoted as a table or column name. Case is ignored.
func IsKeyword(s string) bool {
	_, ok := keywords[strings.ToUpper(s)]
	return ok
}

// keywords is the union of the words sqlite, postgres and duckdb reject as
// bare identifiers.
var keywords = toSet(
	"ADD", "ALL", "ALTER", "ANALYSE", "ANALYZE", "AND", "ANY", "ARRAY", "AS",
	"ASC", "ASYMMETRIC", "AUTOINCREMENT", "BETWEEN", "BOTH", "CASE", "CAST",
	"CHECK", "COLLATE", "COLUMN", "COMMIT", "CONSTRAINT", "CREATE",
	"CURRENT_CATALOG", "CURRENT_DATE", "CURRENT_ROLE", "CURRENT_TIME",
	"CURRENT_TIMESTAMP", "CURRENT_USER", "DEFAULT", "DEFERRABLE", "DELETE",
	"DESC", "DISTINCT", "DO", "DROP", "ELSE", "END", "ESCAPE", "EXCEPT",
	"EXISTS", "FALSE", "FETCH", "FOR", "FOREIGN", "FROM", "GRANT", "GROUP",
	"HAVING", "IN", "INDEX", "INITIALLY", "INSERT", "INTERSECT", "INTO", "IS",
	"ISNULL", "JOIN", "LATERAL", "LEADING", "LIMIT", "LOCALTIME",
	"LOCALTIMESTAMP", "NOT", "NOTHING", "NOTNULL", "NULL", "OFFSET", "ON",
	"ONLY", "OR", "ORDER", "PLACING", "PRIMARY", "REFERENCES", "RETURNING",
	"SELECT", "SESSION_USER", "SET", "SOME", "SYMMETRIC", "TABLE", "THEN", "TO",
	"TRAILING", "TRANSACTION", "TRUE", "UNION", "UNIQUE", "UPDATE", "USER",
	"USING", "VALUES", "VARIADIC", "WHEN", "WHERE", "WINDOW", "WITH",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// SequenceName derives the name of the sequence backing a table's primary
// key on engines without an auto-increment column type.
func SequenceName(table string) string {
	return table + "_" + PrimaryKey + "_seq"
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
