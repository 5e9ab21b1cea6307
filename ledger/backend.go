package ledger

import (
	"context"
	"errors"
)

// AnyVersion passed as expected version makes WriteAll unconditional.
const AnyVersion = ""

// ErrOutcomeUnknown wrapped by WriteAll errors raised after the write may have
// reached the medium. The ledger reports them as ambiguous.
var ErrOutcomeUnknown = errors.New("write outcome unknown")

// Table whole content of the backing table and the token identifying that content.
type Table struct {
	Rows    []Row
	Version string
}

// Backend persistence medium of the ledger. There is no row level update: every
// change rewrites the whole table.
//
// WriteAll must reject the write with an error wrapping bizerror.ErrConflict when
// expectedVersion is not AnyVersion and differs from the current version.
type Backend interface {
	Read(ctx context.Context) (Table, error)
	WriteAll(ctx context.Context, rows []Row, expectedVersion string) (string, error)
}
