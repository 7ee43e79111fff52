//go:build !shadow_cgo

package shadow

import (
	_ "modernc.org/sqlite"
)

// driverName selects the pure-Go sqlite driver by default, so the shim
// itself never needs cgo to build. A host that already links a C
// SQLite (the common case, since this shim replaces that exact
// library) can instead build with -tags shadow_cgo to reuse it via
// driver_mattn.go, mirroring the teacher's parallel adapter/sqlite3
// (cgo) and database/sqlite3 (cgo) pair kept behind one interface.
const driverName = "sqlite"
