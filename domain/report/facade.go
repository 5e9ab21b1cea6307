package report

import (
	"context"
	"maps"
	"time"

	"teamflow/domain"
	"teamflow/ledger"
	"teamflow/roster"

	"github.com/patrickmn/go-cache"
)

const reportExpiration = 10 * time.Minute

type ReportTraits interface {
	List(ctx context.Context, q RecordQuery) ([]domain.AssignmentRecord, error)
	Summary(ctx context.Context) (*Summary, error)
	MemberCounts(ctx context.Context) ([]MemberCount, error)
	PaymentTotals(ctx context.Context) (*PaymentTotals, error)
	MonthlyRollup(ctx context.Context) ([]MonthlyStat, error)
}

// Facade answers reads from a fresh snapshot. Computed reports are cached per
// ledger version, so a cached report is never older than the snapshot just read.
// Callers get their own copy of a cached report.
type Facade struct {
	ledger *ledger.Ledger
	roster *roster.Roster
	cache  *cache.Cache
}

func NewFacade(l *ledger.Ledger, r *roster.Roster) *Facade {
	f := &Facade{ledger: l, roster: r, cache: cache.New(reportExpiration, time.Minute)}
	l.OnChange(func(ledger.Snapshot) {
		f.cache.Flush()
	})
	return f
}

func (f *Facade) List(ctx context.Context, q RecordQuery) ([]domain.AssignmentRecord, error) {
	s, err := f.ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return List(s.Records, q)
}

func (f *Facade) Summary(ctx context.Context) (*Summary, error) {
	v, err := f.cached(ctx, "summary", func(s ledger.Snapshot) (interface{}, error) {
		return Summarize(s.Records, f.roster)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary).clone(), nil
}

func (f *Facade) MemberCounts(ctx context.Context) ([]MemberCount, error) {
	v, err := f.cached(ctx, "members", func(s ledger.Snapshot) (interface{}, error) {
		return MemberCounts(s.Records, f.roster), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneMemberCounts(v.([]MemberCount)), nil
}

func (f *Facade) PaymentTotals(ctx context.Context) (*PaymentTotals, error) {
	v, err := f.cached(ctx, "payments", func(s ledger.Snapshot) (interface{}, error) {
		totals := CalculatePaymentTotals(s.Records)
		return &totals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PaymentTotals).clone(), nil
}

func (f *Facade) MonthlyRollup(ctx context.Context) ([]MonthlyStat, error) {
	v, err := f.cached(ctx, "monthly", func(s ledger.Snapshot) (interface{}, error) {
		return MonthlyRollup(s.Records), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneMonthlyStats(v.([]MonthlyStat)), nil
}

func (f *Facade) cached(ctx context.Context, name string,
	compute func(ledger.Snapshot) (interface{}, error)) (interface{}, error) {

	s, err := f.ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	key := name + "@" + s.Version
	if v, found := f.cache.Get(key); found {
		return v, nil
	}
	v, err := compute(s)
	if err != nil {
		return nil, err
	}
	f.cache.SetDefault(key, v)
	return v, nil
}

func (s *Summary) clone() *Summary {
	c := *s
	c.ByCategory = maps.Clone(s.ByCategory)
	c.Upcoming = maps.Clone(s.Upcoming)
	return &c
}

func (t *PaymentTotals) clone() *PaymentTotals {
	c := *t
	c.Amounts = maps.Clone(t.Amounts)
	c.Counts = maps.Clone(t.Counts)
	return &c
}

func cloneMemberCounts(counts []MemberCount) []MemberCount {
	c := make([]MemberCount, len(counts))
	for i, m := range counts {
		m.Counts = maps.Clone(m.Counts)
		c[i] = m
	}
	return c
}

func cloneMonthlyStats(stats []MonthlyStat) []MonthlyStat {
	c := make([]MonthlyStat, len(stats))
	for i, m := range stats {
		m.Counts = maps.Clone(m.Counts)
		c[i] = m
	}
	return c
}
