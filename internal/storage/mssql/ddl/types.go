// Package ddl maps Arrow output schemas to SQL Server tables.
package ddl

import (
	"fmt"

	"github.com/apache/arrow/go/arrow"
)

// MapType returns the SQL Server column type for an Arrow column. Text uses
// NVARCHAR(MAX) so side columns can hold any raw value.
func MapType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return "BIT", nil
	case arrow.INT8, arrow.INT16:
		return "SMALLINT", nil
	case arrow.INT32:
		return "INT", nil
	case arrow.INT64, arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "BIGINT", nil
	case arrow.FLOAT16, arrow.FLOAT32:
		return "REAL", nil
	case arrow.FLOAT64:
		return "FLOAT", nil
	case arrow.DATE32, arrow.DATE64:
		return "DATE", nil
	case arrow.STRING:
		return "NVARCHAR(MAX)", nil
	case arrow.BINARY:
		return "VARBINARY(MAX)", nil
	}
	return "", fmt.Errorf("mssql ddl: unsupported arrow type %s", dt)
}
