// Package all registers every built-in warehouse dialect. Import it for side
// effects from the wiring layer (cmd/jsonload) so that configuration can name
// any of:
//
//   - "redshift" (jsonload/internal/warehouse/redshift)
//   - "sqlite"   (jsonload/internal/warehouse/sqlite)
//   - "mssql"    (jsonload/internal/warehouse/mssql)
//   - "mysql"    (jsonload/internal/warehouse/mysql)
package all

import (
	_ "jsonload/internal/warehouse/mssql"
	_ "jsonload/internal/warehouse/mysql"
	_ "jsonload/internal/warehouse/redshift"
	_ "jsonload/internal/warehouse/sqlite"
)
