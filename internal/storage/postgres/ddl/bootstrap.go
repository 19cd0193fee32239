package ddl

import (
	"context"

	"github.com/apache/arrow/go/arrow"

	gddl "etlops/internal/ddl"
	"etlops/internal/storage"
)

// Bootstrap is the storage.DDLBootstrapper for Postgres. table may be
// schema-qualified ("public.credit").
func Bootstrap(ctx context.Context, repo storage.Repository, table string, sch *arrow.Schema) error {
	def, err := gddl.FromArrow(table, sch, MapType)
	if err != nil {
		return err
	}
	sql, err := gddl.CreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
