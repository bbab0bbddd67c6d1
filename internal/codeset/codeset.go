// Package codeset loads lists of reserved voucher codes: codes printed on
// retired campaigns or blocked by operators, which must never be issued again.
package codeset

import (
	"context"
)

// Set is an immutable collection of codes with constant-time lookup.
type Set interface {
	// Contains checks if a code exists in the set.
	Contains(code string) bool

	// Size returns the number of codes in the set.
	Size() int
}

// Loader reads a gzipped code list, one code per line.
type Loader interface {
	Load(ctx context.Context, path string) (Set, error)
}

// Reserved answers whether a code is blocked from being issued.
type Reserved interface {
	IsReserved(code string) bool
}
