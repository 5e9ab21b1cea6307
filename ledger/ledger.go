package ledger

import (
	"context"
	"errors"
	"fmt"

	"teamflow/bizerror"
	"teamflow/domain"
	"teamflow/idgen"

	"github.com/fundwit/go-commons/types"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
	"golang.org/x/time/rate"
)

// ErrNoChange returned by a Rewrite edit to finish without writing.
var ErrNoChange = errors.New("no change")

// Snapshot records in append order, plus the version token they were read at.
type Snapshot struct {
	Records []domain.AssignmentRecord
	Version string
}

// ChangeHandler is invoked after every successful write with the written state.
type ChangeHandler func(Snapshot)

// Ledger the only persisted state. Nothing is cached in process: every operation
// starts from a fresh read of the backend.
type Ledger struct {
	backend  Backend
	config   Config
	idWorker *sonyflake.Sonyflake
	limiter  *rate.Limiter

	changeHandlers []ChangeHandler
}

// New fails with a configuration error when no id generator can be set up.
func New(backend Backend, config Config) (*Ledger, error) {
	idWorker, err := idgen.NewWorker()
	if err != nil {
		return nil, err
	}
	return &Ledger{
		backend:  backend,
		config:   config,
		idWorker: idWorker,
		limiter:  rate.NewLimiter(rate.Every(config.RetryInterval), 1),
	}, nil
}

// OnChange registers h. Handlers are registered while wiring, before serving.
func (l *Ledger) OnChange(h ChangeHandler) {
	l.changeHandlers = append(l.changeHandlers, h)
}

func (l *Ledger) Config() Config {
	return l.config
}

// NextID time ordered id, never handed out twice.
func (l *Ledger) NextID() types.ID {
	return idgen.NextID(l.idWorker)
}

func (l *Ledger) ReadAll(ctx context.Context) (Snapshot, error) {
	span, ctx := startSpan(ctx, "ledger.read")
	s, err := l.read(ctx)
	finishSpan(span, err)
	return s, err
}

// ReplaceAll overwrites the whole table with records. In optimistic mode the write
// only succeeds if the table is still at base.Version.
func (l *Ledger) ReplaceAll(ctx context.Context, base Snapshot, records []domain.AssignmentRecord) (Snapshot, error) {
	span, ctx := startSpan(ctx, "ledger.replace")
	s, err := l.write(ctx, base, records)
	finishSpan(span, err)
	return s, err
}

// Append reads the table, lets compose build the new record from that snapshot and
// writes snapshot + record back, as one operation. On conflict the whole cycle is
// recomputed from a fresh read, up to Config.ConflictRetries times.
func (l *Ledger) Append(ctx context.Context,
	compose func(Snapshot) (domain.AssignmentRecord, error)) (domain.AssignmentRecord, error) {

	span, ctx := startSpan(ctx, "ledger.append")
	var created domain.AssignmentRecord
	err := l.retryOnConflict(ctx, func() error {
		snapshot, err := l.read(ctx)
		if err != nil {
			return err
		}
		record, err := compose(snapshot)
		if err != nil {
			return err
		}
		// persisted form, so that the caller sees exactly what later reads return
		if record, err = DecodeRow(EncodeRecord(record)); err != nil {
			return bizerror.NewValidationError("record", err.Error())
		}

		next := make([]domain.AssignmentRecord, 0, len(snapshot.Records)+1)
		next = append(next, snapshot.Records...)
		next = append(next, record)
		if _, err := l.write(ctx, snapshot, next); err != nil {
			return err
		}
		created = record
		return nil
	})
	finishSpan(span, err)
	return created, err
}

// Rewrite reads the table, applies edit and writes the result back, as one operation.
// edit receives a copy of the records; returning ErrNoChange skips the write.
func (l *Ledger) Rewrite(ctx context.Context,
	edit func([]domain.AssignmentRecord) ([]domain.AssignmentRecord, error)) (Snapshot, error) {

	span, ctx := startSpan(ctx, "ledger.rewrite")
	var result Snapshot
	err := l.retryOnConflict(ctx, func() error {
		snapshot, err := l.read(ctx)
		if err != nil {
			return err
		}
		working := make([]domain.AssignmentRecord, len(snapshot.Records))
		copy(working, snapshot.Records)

		next, err := edit(working)
		if errors.Is(err, ErrNoChange) {
			result = snapshot
			return nil
		}
		if err != nil {
			return err
		}
		result, err = l.write(ctx, snapshot, next)
		return err
	})
	finishSpan(span, err)
	return result, err
}

func (l *Ledger) retryOnConflict(ctx context.Context, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !errors.Is(err, bizerror.ErrConflict) || attempt >= l.config.ConflictRetries {
			return err
		}
		logrus.WithFields(logrus.Fields{"attempt": attempt + 1, "error": err.Error()}).
			Warn("ledger changed during read-modify-write, recomputing")
		if waitErr := l.limiter.Wait(ctx); waitErr != nil {
			return err
		}
	}
}

func (l *Ledger) read(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.IOTimeout)
	defer cancel()

	type result struct {
		table Table
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		table, err := l.backend.Read(ctx)
		ch <- result{table: table, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return Snapshot{}, &bizerror.ErrPersistence{Op: "read", Cause: ctx.Err()}
	}
	if r.err != nil {
		return Snapshot{}, &bizerror.ErrPersistence{Op: "read", Cause: r.err}
	}
	records, err := decodeTable(r.table.Rows)
	if err != nil {
		return Snapshot{}, &bizerror.ErrPersistence{Op: "read", Cause: err}
	}
	return Snapshot{Records: records, Version: r.table.Version}, nil
}

func (l *Ledger) write(ctx context.Context, base Snapshot, records []domain.AssignmentRecord) (Snapshot, error) {
	rows := make([]Row, 0, len(records))
	ids := map[types.ID]bool{}
	for _, r := range records {
		if ids[r.ID] {
			return Snapshot{}, bizerror.NewValidationError("id", fmt.Sprintf("duplicated id %d", r.ID))
		}
		ids[r.ID] = true
		rows = append(rows, EncodeRecord(r))
	}

	expected := base.Version
	if l.config.Concurrency == ConcurrencyLastWriterWins {
		expected = AnyVersion
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.IOTimeout)
	defer cancel()

	type result struct {
		version string
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		version, err := l.backend.WriteAll(ctx, rows, expected)
		ch <- result{version: version, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		// the backend may still complete the write
		return Snapshot{}, &bizerror.ErrPersistence{Op: "write", Ambiguous: true, Cause: ctx.Err()}
	}
	if r.err != nil {
		if errors.Is(r.err, bizerror.ErrConflict) {
			return Snapshot{}, r.err
		}
		ambiguous := errors.Is(r.err, ErrOutcomeUnknown) ||
			errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, context.Canceled)
		return Snapshot{}, &bizerror.ErrPersistence{Op: "write", Ambiguous: ambiguous, Cause: r.err}
	}

	written, err := decodeTable(rows)
	if err != nil {
		return Snapshot{}, &bizerror.ErrPersistence{Op: "write", Cause: err}
	}
	snapshot := Snapshot{Records: written, Version: r.version}
	for _, h := range l.changeHandlers {
		h(snapshot)
	}
	return snapshot, nil
}

func startSpan(ctx context.Context, operation string) (opentracing.Span, context.Context) {
	parent := opentracing.SpanFromContext(ctx)
	if parent == nil {
		return nil, ctx
	}
	span := parent.Tracer().StartSpan(operation, opentracing.ChildOf(parent.Context()))
	return span, opentracing.ContextWithSpan(ctx, span)
}

func finishSpan(span opentracing.Span, err error) {
	if span == nil {
		return
	}
	ext.Error.Set(span, err != nil)
	span.Finish()
}
