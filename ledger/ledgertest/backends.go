package ledgertest

import (
	"context"
	"sync"
	"time"

	"teamflow/ledger"
)

// ReadBarrier holds the first Parties reads until all of them have read the table,
// so that every one of them works on the same snapshot.
type ReadBarrier struct {
	ledger.Backend
	Parties int

	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func NewReadBarrier(backend ledger.Backend, parties int) *ReadBarrier {
	return &ReadBarrier{Backend: backend, Parties: parties, release: make(chan struct{})}
}

func (b *ReadBarrier) Read(ctx context.Context) (ledger.Table, error) {
	table, err := b.Backend.Read(ctx)

	b.mu.Lock()
	b.arrived++
	idx := b.arrived
	if b.arrived == b.Parties {
		close(b.release)
	}
	b.mu.Unlock()

	if idx <= b.Parties {
		select {
		case <-b.release:
		case <-ctx.Done():
			return ledger.Table{}, ctx.Err()
		}
	}
	return table, err
}

// SlowWriter completes every write, but only after Delay, whatever the caller's deadline.
type SlowWriter struct {
	ledger.Backend
	Delay time.Duration
}

func (s *SlowWriter) WriteAll(_ context.Context, rows []ledger.Row, expectedVersion string) (string, error) {
	time.Sleep(s.Delay)
	return s.Backend.WriteAll(context.Background(), rows, expectedVersion)
}

// Failing fails reads with ReadErr and writes with WriteErr, when set.
type Failing struct {
	ledger.Backend
	ReadErr  error
	WriteErr error
}

func (f *Failing) Read(ctx context.Context) (ledger.Table, error) {
	if f.ReadErr != nil {
		return ledger.Table{}, f.ReadErr
	}
	return f.Backend.Read(ctx)
}

func (f *Failing) WriteAll(ctx context.Context, rows []ledger.Row, expectedVersion string) (string, error) {
	if f.WriteErr != nil {
		return "", f.WriteErr
	}
	return f.Backend.WriteAll(ctx, rows, expectedVersion)
}

// MustNew builds a ledger over backend, panicking on setup failure.
func MustNew(backend ledger.Backend, config ledger.Config) *ledger.Ledger {
	l, err := ledger.New(backend, config)
	if err != nil {
		panic(err)
	}
	return l
}

// Config fast settings for tests.
func Config(concurrency string, retries int) ledger.Config {
	return ledger.Config{
		Concurrency:     concurrency,
		IOTimeout:       2 * time.Second,
		ConflictRetries: retries,
		RetryInterval:   time.Millisecond,
	}
}
