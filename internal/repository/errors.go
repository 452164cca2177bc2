// Package repository implements the engine's storage ports over MySQL.  One
// Store instance covers one tenant database; the management registry lives
// in its own schema behind ManagementStore.  Lookups that find nothing
// return (nil, nil); sentinel errors below cover the failure shapes callers
// branch on.
package repository

import (
	"errors"
	"strings"
)

// ErrConflict is returned when an insert collides with an existing row in a
// way the caller did not ask to merge, such as registering a host under an
// identifier that is already taken. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
