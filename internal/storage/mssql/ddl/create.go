package ddl

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/arrow"

	gddl "etlops/internal/ddl"
	"etlops/internal/storage"
)

// BuildCreateTableSQL returns a T-SQL script that creates the table if it
// does not already exist:
//
//	IF OBJECT_ID(N'[dbo].[credit]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[credit] (
//	    [id] BIGINT,
//	    [amount] FLOAT
//	  );
//	END;
//
// T-SQL has no CREATE TABLE IF NOT EXISTS, hence the OBJECT_ID guard.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	fqn := quoteFQN(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("mssql ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("mssql ddl: table %s has no columns", t.FQN)
	}

	cols := make([]string, 0, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return "", fmt.Errorf("mssql ddl: column with empty name in table %s", t.FQN)
		}
		// SQL Server identifiers are case-insensitive under the default collation.
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return "", fmt.Errorf("mssql ddl: duplicate column %s in table %s", c.Name, t.FQN)
		}
		seen[key] = struct{}{}

		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("mssql ddl: column %s missing SQLType", c.Name)
		}
		col := quoteIdent(c.Name) + " " + typ
		if !c.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"),
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

// Bootstrap is the storage.DDLBootstrapper for SQL Server. table may be
// schema-qualified ("dbo.credit").
func Bootstrap(ctx context.Context, repo storage.Repository, table string, sch *arrow.Schema) error {
	def, err := gddl.FromArrow(table, sch, MapType)
	if err != nil {
		return err
	}
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

// quoteIdent quotes one identifier with brackets, doubling any "]".
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// quoteFQN quotes each dot-separated part of a possibly schema-qualified
// name, skipping empty parts.
func quoteFQN(fqn string) string {
	var out []string
	for _, p := range strings.Split(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, quoteIdent(p))
		}
	}
	return strings.Join(out, ".")
}
