package assignment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"teamflow/bizerror"
	"teamflow/domain"
	"teamflow/domain/turn"
	"teamflow/ledger"
	"teamflow/roster"
	"teamflow/security"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

type AssignmentTraits interface {
	Assign(ctx context.Context, req *AssignmentRequest) (*domain.AssignmentRecord, error)
	UpdateFields(ctx context.Context, id types.ID, u *FieldsUpdate) (*domain.AssignmentRecord, error)
	Delete(ctx context.Context, id types.ID, authorization string) (*domain.AssignmentRecord, error)
	Upcoming(ctx context.Context) (map[domain.Category]string, error)
}

type AssignmentRequest struct {
	Category    domain.Category `json:"category" binding:"required"`
	DocumentRef string          `json:"documentRef"`

	WorkClass     string               `json:"workClass" binding:"lte=128"`
	Amount        *float64             `json:"amount"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Priority      domain.Priority      `json:"priority"`
}

type Manager struct {
	ledger *ledger.Ledger
	roster *roster.Roster
	gate   *security.Gate

	now func() time.Time
}

func NewManager(l *ledger.Ledger, r *roster.Roster, g *security.Gate) *Manager {
	return &Manager{ledger: l, roster: r, gate: g, now: time.Now}
}

// Assign appends a record for whoever's turn it is in the request's category.
// Validation happens before the ledger is read; the turn is resolved and the
// record written within one read-modify-write of the ledger.
func (m *Manager) Assign(ctx context.Context, req *AssignmentRequest) (*domain.AssignmentRecord, error) {
	draft, err := normalize(req)
	if err != nil {
		return nil, err
	}

	record, err := m.ledger.Append(ctx, func(s ledger.Snapshot) (domain.AssignmentRecord, error) {
		assignee, err := turn.NextAssignee(s.Records, draft.Category, m.roster)
		if err != nil {
			return domain.AssignmentRecord{}, err
		}
		r := draft
		r.ID = m.ledger.NextID()
		r.Assignee = assignee
		r.CreatedAt = m.now().Truncate(time.Second)
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"recordId": record.ID, "category": record.Category,
		"assignee": record.Assignee}).Info("work assigned")
	return &record, nil
}

func (m *Manager) Upcoming(ctx context.Context) (map[domain.Category]string, error) {
	s, err := m.ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return turn.Upcoming(s.Records, m.roster)
}

// normalize validates the request and fills the billing defaults. Revision work is
// never billed, whatever the caller sent.
func normalize(req *AssignmentRequest) (domain.AssignmentRecord, error) {
	if !req.Category.Valid() {
		return domain.AssignmentRecord{}, bizerror.NewValidationError("category",
			fmt.Sprintf("unknown category '%s'", req.Category))
	}
	documentRef := strings.TrimSpace(req.DocumentRef)
	if documentRef == "" {
		return domain.AssignmentRecord{}, bizerror.ErrMissingArtifact
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return domain.AssignmentRecord{}, bizerror.NewValidationError("priority",
			fmt.Sprintf("unknown priority '%s'", priority))
	}

	r := domain.AssignmentRecord{Category: req.Category, DocumentRef: documentRef, Priority: priority}
	if req.Category == domain.CategoryRevision {
		r.WorkClass = domain.RevisionWorkClass
		r.Amount = 0
		r.PaymentStatus = domain.PaymentNotApplicable
		return r, nil
	}

	r.WorkClass = strings.TrimSpace(req.WorkClass)
	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return domain.AssignmentRecord{}, err
		}
		r.Amount = *req.Amount
	}
	r.PaymentStatus = req.PaymentStatus
	if r.PaymentStatus == "" {
		r.PaymentStatus = domain.DefaultPaymentStatus(req.Category)
	}
	if err := validateNewWorkStatus(r.PaymentStatus); err != nil {
		return domain.AssignmentRecord{}, err
	}
	return r, nil
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return bizerror.NewValidationError("amount", "must be a finite number")
	}
	if amount < 0 {
		return bizerror.NewValidationError("amount", "must not be negative")
	}
	return nil
}

func validateNewWorkStatus(status domain.PaymentStatus) error {
	if !status.Valid() {
		return bizerror.NewValidationError("paymentStatus", fmt.Sprintf("unknown payment status '%s'", status))
	}
	if status == domain.PaymentNotApplicable {
		return bizerror.NewValidationError("paymentStatus", "NewWork is always billed")
	}
	return nil
}
