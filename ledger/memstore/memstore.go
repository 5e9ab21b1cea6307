package memstore

import (
	"context"
	"fmt"
	"sync"

	"teamflow/bizerror"
	"teamflow/ledger"
)

// Store in process ledger backend, used by tests and LEDGER_BACKEND=memory.
type Store struct {
	mu      sync.Mutex
	rows    []ledger.Row
	counter int
}

func New(rows ...ledger.Row) *Store {
	s := &Store{}
	s.rows = append(s.rows, rows...)
	return s
}

func (s *Store) version() string {
	return fmt.Sprintf("v%d", s.counter)
}

func (s *Store) Read(ctx context.Context) (ledger.Table, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Table{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]ledger.Row, len(s.rows))
	copy(rows, s.rows)
	return ledger.Table{Rows: rows, Version: s.version()}, nil
}

func (s *Store) WriteAll(ctx context.Context, rows []ledger.Row, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedVersion != ledger.AnyVersion && expectedVersion != s.version() {
		return "", fmt.Errorf("%w: expected %s, found %s", bizerror.ErrConflict, expectedVersion, s.version())
	}
	s.rows = make([]ledger.Row, len(rows))
	copy(s.rows, rows)
	s.counter++
	return s.version(), nil
}

// Rows copy of the current rows.
func (s *Store) Rows() []ledger.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]ledger.Row, len(s.rows))
	copy(rows, s.rows)
	return rows
}
