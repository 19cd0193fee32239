// Package ddl maps Arrow output schemas to SQLite tables.
package ddl

import (
	"fmt"

	"github.com/apache/arrow/go/arrow"
)

// MapType returns the SQLite storage class for an Arrow column. Booleans are
// stored as 0/1 and dates as ISO-8601 text.
func MapType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return "INTEGER", nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "INTEGER", nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return "REAL", nil
	case arrow.DATE32, arrow.DATE64, arrow.STRING:
		return "TEXT", nil
	case arrow.BINARY:
		return "BLOB", nil
	}
	return "", fmt.Errorf("sqlite ddl: unsupported arrow type %s", dt)
}
