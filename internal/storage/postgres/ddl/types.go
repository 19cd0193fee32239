// Package ddl maps Arrow output schemas to Postgres tables.
package ddl

import (
	"fmt"

	"github.com/apache/arrow/go/arrow"
)

// MapType returns the Postgres column type for an Arrow column.
func MapType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return "BOOLEAN", nil
	case arrow.INT8, arrow.INT16:
		return "SMALLINT", nil
	case arrow.INT32:
		return "INTEGER", nil
	case arrow.INT64, arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "BIGINT", nil
	case arrow.FLOAT32:
		return "REAL", nil
	case arrow.FLOAT64:
		return "DOUBLE PRECISION", nil
	case arrow.DATE32, arrow.DATE64:
		return "DATE", nil
	case arrow.STRING:
		return "TEXT", nil
	case arrow.BINARY:
		return "BYTEA", nil
	}
	return "", fmt.Errorf("postgres ddl: unsupported arrow type %s", dt)
}
