package assignment

import (
	"context"
	"strings"

	"teamflow/bizerror"
	"teamflow/domain"
	"teamflow/ledger"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

// FieldsUpdate fields a caller may correct after assignment, nil means keep.
type FieldsUpdate struct {
	DocumentRef   *string               `json:"documentRef"`
	Amount        *float64              `json:"amount"`
	PaymentStatus *domain.PaymentStatus `json:"paymentStatus"`
}

func (u *FieldsUpdate) empty() bool {
	return u == nil || (u.DocumentRef == nil && u.Amount == nil && u.PaymentStatus == nil)
}

// UpdateFields changes billing fields or the document reference of one record.
// Category, assignee and createdAt never change.
func (m *Manager) UpdateFields(ctx context.Context, id types.ID, u *FieldsUpdate) (*domain.AssignmentRecord, error) {
	if u != nil && u.DocumentRef != nil && strings.TrimSpace(*u.DocumentRef) == "" {
		return nil, bizerror.ErrMissingArtifact
	}
	if u != nil && u.Amount != nil {
		if err := validateAmount(*u.Amount); err != nil {
			return nil, err
		}
	}
	if u != nil && u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return nil, bizerror.NewValidationError("paymentStatus", "unknown payment status '"+string(*u.PaymentStatus)+"'")
	}

	var updated domain.AssignmentRecord
	_, err := m.ledger.Rewrite(ctx, func(records []domain.AssignmentRecord) ([]domain.AssignmentRecord, error) {
		idx := indexOf(records, id)
		if idx < 0 {
			return nil, bizerror.ErrNotFound
		}
		r, err := applyUpdate(records[idx], u)
		if err != nil {
			return nil, err
		}
		updated = r
		if r == records[idx] {
			return nil, ledger.ErrNoChange
		}
		records[idx] = r
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	if !u.empty() {
		logrus.WithFields(logrus.Fields{"recordId": id, "category": updated.Category,
			"paymentStatus": updated.PaymentStatus}).Info("assignment updated")
	}
	return &updated, nil
}

// Delete removes the record for good. The count of its category drops by one, so
// the turn moves back.
func (m *Manager) Delete(ctx context.Context, id types.ID, authorization string) (*domain.AssignmentRecord, error) {
	if err := m.gate.Check(authorization); err != nil {
		return nil, err
	}

	var deleted domain.AssignmentRecord
	_, err := m.ledger.Rewrite(ctx, func(records []domain.AssignmentRecord) ([]domain.AssignmentRecord, error) {
		idx := indexOf(records, id)
		if idx < 0 {
			return nil, bizerror.ErrNotFound
		}
		deleted = records[idx]
		return append(records[:idx], records[idx+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"recordId": id, "category": deleted.Category,
		"assignee": deleted.Assignee}).Warn("assignment deleted")
	return &deleted, nil
}

func applyUpdate(r domain.AssignmentRecord, u *FieldsUpdate) (domain.AssignmentRecord, error) {
	if u.empty() {
		return r, nil
	}
	if u.DocumentRef != nil {
		r.DocumentRef = strings.TrimSpace(*u.DocumentRef)
	}

	if r.Category == domain.CategoryRevision {
		if u.Amount != nil && *u.Amount != 0 {
			return r, bizerror.NewValidationError("amount", "Revision work is not billed")
		}
		if u.PaymentStatus != nil && *u.PaymentStatus != domain.PaymentNotApplicable {
			return r, bizerror.NewValidationError("paymentStatus", "Revision work is not billed")
		}
		return r, nil
	}

	if u.Amount != nil {
		r.Amount = *u.Amount
	}
	if u.PaymentStatus != nil {
		if err := validateNewWorkStatus(*u.PaymentStatus); err != nil {
			return r, err
		}
		r.PaymentStatus = *u.PaymentStatus
	}
	return r, nil
}

func indexOf(records []domain.AssignmentRecord, id types.ID) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
