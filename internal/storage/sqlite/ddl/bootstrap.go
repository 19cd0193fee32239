package ddl

import (
	"context"

	"github.com/apache/arrow/go/arrow"

	gddl "etlops/internal/ddl"
	"etlops/internal/storage"
)

// BuildCreateTableSQL renders def for SQLite.
func BuildCreateTableSQL(def gddl.TableDef) (string, error) {
	return gddl.CreateTableSQL(def)
}

// EnsureTable applies the CREATE TABLE IF NOT EXISTS statement for def.
func EnsureTable(ctx context.Context, repo storage.Repository, def gddl.TableDef) error {
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

// Bootstrap is the storage.DDLBootstrapper for SQLite.
func Bootstrap(ctx context.Context, repo storage.Repository, table string, sch *arrow.Schema) error {
	def, err := gddl.FromArrow(table, sch, MapType)
	if err != nil {
		return err
	}
	return EnsureTable(ctx, repo, def)
}
