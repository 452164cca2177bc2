// Package engine implements the content reconciliation core: identity and
// alias resolution, media registry, per-kind content upsert, paid-content
// classification, the subscription/buyer ledger, job scheduling and
// notification emission.  It operates on plain entities through storage
// ports and holds no SQL of its own.
package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identity (or other entity) cannot be
// resolved.  The HTTP layer translates it to a 404.
var ErrNotFound = errors.New("not found")

// ReceiverMismatchError reports that a message snapshot names a receiver
// different from the one already recorded.  The receiver of a message is
// immutable once observed; a mismatch is a hard error for the affected item
// and never a silent overwrite.  The HTTP layer translates it to a 409.
type ReceiverMismatchError struct {
	MessageID int64
	Stored    int64
	Incoming  int64
}

func (e *ReceiverMismatchError) Error() string {
	return fmt.Sprintf("message %d: receiver already recorded as %d, snapshot reports %d",
		e.MessageID, e.Stored, e.Incoming)
}

// AmbiguousAliasError reports that more than one identity claims the same
// alias name.  This is a data-integrity error: it is reported, not retried.
type AmbiguousAliasError struct {
	Alias    string
	OwnerIDs []int64
}

func (e *AmbiguousAliasError) Error() string {
	return fmt.Sprintf("alias %q resolves to %d identities %v", e.Alias, len(e.OwnerIDs), e.OwnerIDs)
}

// IsConflict reports whether err belongs to the integrity-conflict family
// that maps to an HTTP 409.
func IsConflict(err error) bool {
	var rm *ReceiverMismatchError
	var aa *AmbiguousAliasError
	return errors.As(err, &rm) || errors.As(err, &aa)
}
