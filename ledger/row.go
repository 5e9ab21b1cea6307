package ledger

import (
	"fmt"
	"math"
	"time"

	"teamflow/domain"

	"github.com/fundwit/go-commons/types"
)

const TimeLayout = "2006-01-02 15:04:05"

// Columns persisted column names, in table order.
var Columns = []string{"id", "documentRef", "category", "assignee", "createdAt",
	"workClass", "amount", "paymentStatus", "priority"}

// Row persisted form of an assignment record.
type Row struct {
	ID            types.ID
	DocumentRef   string
	Category      string
	Assignee      string
	CreatedAt     string
	WorkClass     string
	Amount        float64
	PaymentStatus string
	Priority      string
}

func EncodeRecord(r domain.AssignmentRecord) Row {
	return Row{
		ID:            r.ID,
		DocumentRef:   r.DocumentRef,
		Category:      string(r.Category),
		Assignee:      r.Assignee,
		CreatedAt:     r.CreatedAt.In(time.Local).Format(TimeLayout),
		WorkClass:     r.WorkClass,
		Amount:        r.Amount,
		PaymentStatus: string(r.PaymentStatus),
		Priority:      string(r.Priority),
	}
}

// DecodeRow applies the column defaults: paymentStatus by category, priority Normal.
func DecodeRow(row Row) (domain.AssignmentRecord, error) {
	category := domain.Category(row.Category)
	if !category.Valid() {
		return domain.AssignmentRecord{}, fmt.Errorf("row %d: invalid category '%s'", row.ID, row.Category)
	}
	if row.DocumentRef == "" || row.Assignee == "" {
		return domain.AssignmentRecord{}, fmt.Errorf("row %d: documentRef and assignee are required", row.ID)
	}
	createdAt, err := time.ParseInLocation(TimeLayout, row.CreatedAt, time.Local)
	if err != nil {
		return domain.AssignmentRecord{}, fmt.Errorf("row %d: invalid createdAt: %w", row.ID, err)
	}
	if row.Amount < 0 || math.IsNaN(row.Amount) || math.IsInf(row.Amount, 0) {
		return domain.AssignmentRecord{}, fmt.Errorf("row %d: invalid amount %v", row.ID, row.Amount)
	}

	status := domain.PaymentStatus(row.PaymentStatus)
	if status == "" {
		status = domain.DefaultPaymentStatus(category)
	} else if !status.Valid() {
		return domain.AssignmentRecord{}, fmt.Errorf("row %d: invalid paymentStatus '%s'", row.ID, row.PaymentStatus)
	}
	priority := domain.Priority(row.Priority)
	if priority == "" {
		priority = domain.PriorityNormal
	} else if !priority.Valid() {
		return domain.AssignmentRecord{}, fmt.Errorf("row %d: invalid priority '%s'", row.ID, row.Priority)
	}

	return domain.AssignmentRecord{
		ID:            row.ID,
		DocumentRef:   row.DocumentRef,
		Category:      category,
		Assignee:      row.Assignee,
		CreatedAt:     createdAt,
		WorkClass:     row.WorkClass,
		Amount:        row.Amount,
		PaymentStatus: status,
		Priority:      priority,
	}, nil
}

func decodeTable(rows []Row) ([]domain.AssignmentRecord, error) {
	records := make([]domain.AssignmentRecord, 0, len(rows))
	for _, row := range rows {
		r, err := DecodeRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
