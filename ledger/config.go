package ledger

import (
	"fmt"
	"time"

	"teamflow/common"
)

const (
	ConcurrencyOptimistic     = "optimistic"
	ConcurrencyLastWriterWins = "last-writer-wins"
)

type Config struct {
	// Concurrency optimistic: writes are guarded by the version read with the snapshot.
	// last-writer-wins: writes are unconditional, a concurrent change may be lost.
	Concurrency string
	// IOTimeout bound of every backend call
	IOTimeout time.Duration
	// ConflictRetries times a read-modify-write is recomputed after a conflict
	ConflictRetries int
	RetryInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:     ConcurrencyOptimistic,
		IOTimeout:       10 * time.Second,
		ConflictRetries: 2,
		RetryInterval:   50 * time.Millisecond,
	}
}

// ParseConfigFromEnv LEDGER_CONCURRENCY, LEDGER_IO_TIMEOUT, LEDGER_CONFLICT_RETRIES, LEDGER_RETRY_INTERVAL
func ParseConfigFromEnv() (Config, error) {
	c := DefaultConfig()
	c.Concurrency = common.EnvOrDefault("LEDGER_CONCURRENCY", c.Concurrency)
	if c.Concurrency != ConcurrencyOptimistic && c.Concurrency != ConcurrencyLastWriterWins {
		return c, fmt.Errorf("unsupported LEDGER_CONCURRENCY '%s'", c.Concurrency)
	}

	var err error
	if c.IOTimeout, err = common.EnvDuration("LEDGER_IO_TIMEOUT", c.IOTimeout); err != nil {
		return c, err
	}
	if c.RetryInterval, err = common.EnvDuration("LEDGER_RETRY_INTERVAL", c.RetryInterval); err != nil {
		return c, err
	}
	if c.ConflictRetries, err = common.EnvInt("LEDGER_CONFLICT_RETRIES", c.ConflictRetries); err != nil {
		return c, err
	}
	if c.IOTimeout <= 0 || c.ConflictRetries < 0 {
		return c, fmt.Errorf("LEDGER_IO_TIMEOUT must be positive and LEDGER_CONFLICT_RETRIES not negative")
	}
	return c, nil
}
