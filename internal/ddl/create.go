// Package ddl renders the CREATE TABLE statement the database sinks run
// before their first write. Backend packages (internal/storage/postgres/ddl,
// internal/storage/sqlite/ddl) supply the Arrow-to-SQL type mapping.
package ddl

import (
	"fmt"
	"strings"
)

// ColumnDef is one column of a TableDef. Name is unquoted.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef is a table name, possibly schema-qualified ("public.credit"), and
// its columns in order.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// CreateTableSQL renders
//
//	CREATE TABLE IF NOT EXISTS "<schema>"."<table>" (
//	  "<name>" <SQLType> [NOT NULL],
//	  ...
//	);
//
// Identifiers are always quoted so output column names such as
// "amount_typecast_error" or names with spaces survive unchanged.
func CreateTableSQL(t TableDef) (string, error) {
	fqn := QuoteFQN(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %s has no columns", t.FQN)
	}

	cols := make([]string, 0, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", t.FQN)
		}
		if _, dup := seen[c.Name]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", c.Name, t.FQN)
		}
		seen[c.Name] = struct{}{}

		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", c.Name)
		}
		col := QuoteIdent(c.Name) + " " + typ
		if !c.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, strings.Join(cols, ",\n  ")), nil
}

// QuoteIdent double-quotes a single identifier, doubling embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes each dotted segment of a possibly schema-qualified name.
// Empty segments are dropped.
func QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, QuoteIdent(p))
	}
	return strings.Join(out, ".")
}
