package ddl

import (
	"fmt"

	"github.com/apache/arrow/go/arrow"
)

// TypeMapper returns the SQL column type for an Arrow data type.
type TypeMapper func(arrow.DataType) (string, error)

// FromArrow builds a TableDef for fqn with one nullable column per schema
// field, in schema order.
func FromArrow(fqn string, sch *arrow.Schema, mapType TypeMapper) (TableDef, error) {
	if sch == nil || len(sch.Fields()) == 0 {
		return TableDef{}, fmt.Errorf("ddl: schema for %s has no fields", fqn)
	}
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(sch.Fields()))}
	for _, f := range sch.Fields() {
		typ, err := mapType(f.Type)
		if err != nil {
			return TableDef{}, fmt.Errorf("ddl: column %s: %w", f.Name, err)
		}
		def.Columns = append(def.Columns, ColumnDef{Name: f.Name, SQLType: typ, Nullable: true})
	}
	return def, nil
}
