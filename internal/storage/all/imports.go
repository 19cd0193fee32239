// Package all registers the built-in database sinks ("mssql", "postgres"
// and "sqlite") with the storage package. Import it for side effects:
//
//	import _ "etlops/internal/storage/all"
package all

import (
	_ "etlops/internal/storage/mssql"
	_ "etlops/internal/storage/postgres"
	_ "etlops/internal/storage/sqlite"
)
