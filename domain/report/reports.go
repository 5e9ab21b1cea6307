package report

import (
	"fmt"
	"sort"
	"strings"

	"teamflow/bizerror"
	"teamflow/domain"
	"teamflow/domain/turn"
	"teamflow/roster"
)

const (
	OrderNewestFirst = "desc"
	OrderOldestFirst = "asc"
)

type RecordQuery struct {
	Assignee string          `form:"assignee" json:"assignee"`
	Category domain.Category `form:"category" json:"category"`
	Order    string          `form:"order" json:"order" binding:"omitempty,oneof=asc desc"`
}

type MemberCount struct {
	Member string                  `json:"member"`
	Counts map[domain.Category]int `json:"counts"`
	Total  int                     `json:"total"`
}

type PaymentTotals struct {
	Amounts     map[domain.PaymentStatus]float64 `json:"amounts"`
	Counts      map[domain.PaymentStatus]int     `json:"counts"`
	TotalAmount float64                          `json:"totalAmount"`
}

type MonthlyStat struct {
	Month    string                  `json:"month"`
	Counts   map[domain.Category]int `json:"counts"`
	Amount   float64                 `json:"amount"`
	Pending  float64                 `json:"pending"`
	Received float64                 `json:"received"`
}

type Summary struct {
	Total         int                        `json:"total"`
	ByCategory    map[domain.Category]int    `json:"byCategory"`
	PendingAmount float64                    `json:"pendingAmount"`
	Upcoming      map[domain.Category]string `json:"upcoming"`
}

func zeroCounts() map[domain.Category]int {
	counts := map[domain.Category]int{}
	for _, c := range domain.Categories {
		counts[c] = 0
	}
	return counts
}

// List records matching q, newest first unless q.Order is asc.
func List(records []domain.AssignmentRecord, q RecordQuery) ([]domain.AssignmentRecord, error) {
	if q.Category != "" && !q.Category.Valid() {
		return nil, bizerror.NewValidationError("category", fmt.Sprintf("unknown category '%s'", q.Category))
	}
	assignee := strings.TrimSpace(q.Assignee)

	result := []domain.AssignmentRecord{}
	for _, r := range records {
		if assignee != "" && r.Assignee != assignee {
			continue
		}
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		result = append(result, r)
	}
	if q.Order != OrderOldestFirst {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result, nil
}

// MemberCounts one entry per roster member in roster order, zero filled. Assignees which
// left the roster follow, by name.
func MemberCounts(records []domain.AssignmentRecord, r *roster.Roster) []MemberCount {
	index := map[string]int{}
	var stats []MemberCount
	for _, m := range r.Members {
		index[m] = len(stats)
		stats = append(stats, MemberCount{Member: m, Counts: zeroCounts()})
	}

	var former []string
	for _, rec := range records {
		if _, found := index[rec.Assignee]; !found {
			former = append(former, rec.Assignee)
			index[rec.Assignee] = -1
		}
	}
	sort.Strings(former)
	for _, m := range former {
		index[m] = len(stats)
		stats = append(stats, MemberCount{Member: m, Counts: zeroCounts()})
	}

	for _, rec := range records {
		s := &stats[index[rec.Assignee]]
		s.Counts[rec.Category]++
		s.Total++
	}
	return stats
}

// CalculatePaymentTotals sums NewWork amounts by payment status.
func CalculatePaymentTotals(records []domain.AssignmentRecord) PaymentTotals {
	totals := PaymentTotals{
		Amounts: map[domain.PaymentStatus]float64{domain.PaymentPending: 0, domain.PaymentReceived: 0},
		Counts:  map[domain.PaymentStatus]int{domain.PaymentPending: 0, domain.PaymentReceived: 0},
	}
	for _, r := range records {
		if r.Category != domain.CategoryNewWork {
			continue
		}
		totals.Amounts[r.PaymentStatus] += r.Amount
		totals.Counts[r.PaymentStatus]++
		totals.TotalAmount += r.Amount
	}
	return totals
}

// MonthlyRollup per calendar month of createdAt, oldest month first.
func MonthlyRollup(records []domain.AssignmentRecord) []MonthlyStat {
	byMonth := map[string]*MonthlyStat{}
	var months []string
	for _, r := range records {
		month := r.CreatedAt.Format("2006-01")
		s, found := byMonth[month]
		if !found {
			s = &MonthlyStat{Month: month, Counts: zeroCounts()}
			byMonth[month] = s
			months = append(months, month)
		}
		s.Counts[r.Category]++
		if r.Category != domain.CategoryNewWork {
			continue
		}
		s.Amount += r.Amount
		switch r.PaymentStatus {
		case domain.PaymentPending:
			s.Pending += r.Amount
		case domain.PaymentReceived:
			s.Received += r.Amount
		}
	}

	sort.Strings(months)
	stats := make([]MonthlyStat, 0, len(months))
	for _, m := range months {
		stats = append(stats, *byMonth[m])
	}
	return stats
}

func Summarize(records []domain.AssignmentRecord, r *roster.Roster) (*Summary, error) {
	upcoming, err := turn.Upcoming(records, r)
	if err != nil {
		return nil, err
	}
	byCategory := zeroCounts()
	for c, n := range domain.CountByCategory(records) {
		byCategory[c] = n
	}
	return &Summary{
		Total:         len(records),
		ByCategory:    byCategory,
		PendingAmount: CalculatePaymentTotals(records).Amounts[domain.PaymentPending],
		Upcoming:      upcoming,
	}, nil
}
