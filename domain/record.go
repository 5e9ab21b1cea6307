package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

// Category decides which cycle hands out the work and whether billing fields apply.
type Category string

const (
	CategoryNewWork  = Category("NewWork")
	CategoryRevision = Category("Revision")
)

var Categories = []Category{CategoryNewWork, CategoryRevision}

func (c Category) Valid() bool {
	return c == CategoryNewWork || c == CategoryRevision
}

type PaymentStatus string

const (
	PaymentPending       = PaymentStatus("Pending")
	PaymentReceived      = PaymentStatus("Received")
	PaymentNotApplicable = PaymentStatus("NotApplicable")
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentReceived || s == PaymentNotApplicable
}

type Priority string

const (
	PriorityNormal = Priority("Normal")
	PriorityHigh   = Priority("High")
)

func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityHigh
}

// RevisionWorkClass is the only work class a Revision record carries.
const RevisionWorkClass = "Revision"

// AssignmentRecord one row of the ledger.
type AssignmentRecord struct {
	ID          types.ID `json:"id"`
	DocumentRef string   `json:"documentRef"`
	Category    Category `json:"category"`
	Assignee    string   `json:"assignee"`
	// second precision, the ledger does not keep anything finer
	CreatedAt time.Time `json:"createdAt"`

	WorkClass     string        `json:"workClass"`
	Amount        float64       `json:"amount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Priority      Priority      `json:"priority"`
}

// DefaultPaymentStatus status a record of the category starts with.
func DefaultPaymentStatus(c Category) PaymentStatus {
	if c == CategoryRevision {
		return PaymentNotApplicable
	}
	return PaymentPending
}

// CountByCategory number of records per category, categories without records are absent.
func CountByCategory(records []AssignmentRecord) map[Category]int {
	counts := map[Category]int{}
	for _, r := range records {
		counts[r.Category]++
	}
	return counts
}
