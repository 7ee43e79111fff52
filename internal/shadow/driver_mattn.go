//go:build shadow_cgo

package shadow

import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName selects the cgo sqlite3 driver, grounded in the teacher's
// adapter/sqlite3.NewDatabase registration of the same driver name.
const driverName = "sqlite3"
