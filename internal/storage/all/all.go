// Package all registers every storage backend with the factory registry.
// Blank-import it from binaries; config selects which backend is used.
package all

import (
	_ "salesdw/internal/storage/mssql"
	_ "salesdw/internal/storage/postgres"
	_ "salesdw/internal/storage/sqlite"
)
