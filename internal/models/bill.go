package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format accepted for due dates
const DateLayout = "2006-01-02"

// Bill represents a recurring obligation owned by a single user
type Bill struct {
	ID               int64           `json:"id"`
	OwnerID          int64           `json:"owner_id"`
	BillerName       string          `json:"biller_name"`
	Category         string          `json:"category"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          time.Time       `json:"due_date"`
	ReminderInterval int             `json:"reminder_interval_days"`
	IsPaid           bool            `json:"is_paid"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MarshalJSON writes the due date in DateLayout so a bill can be sent back as received
func (b Bill) MarshalJSON() ([]byte, error) {
	type plain Bill
	return json.Marshal(struct {
		plain
		DueDate string `json:"due_date"`
	}{
		plain:   plain(b),
		DueDate: b.DueDate.Format(DateLayout),
	})
}

// UnmarshalJSON reads a due date written by MarshalJSON
func (b *Bill) UnmarshalJSON(data []byte) error {
	type plain Bill
	aux := struct {
		*plain
		DueDate string `json:"due_date"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	b.DueDate = time.Time{}
	if aux.DueDate == "" {
		return nil
	}
	due, err := time.Parse(DateLayout, aux.DueDate)
	if err != nil {
		return fmt.Errorf("invalid due_date %q: %w", aux.DueDate, err)
	}
	b.DueDate = due
	return nil
}

// DueBill pairs an outstanding bill with its owner as seen by a reminder scan
type DueBill struct {
	Bill          *Bill
	Owner         *User
	DaysRemaining int // negative when overdue
}

// IsOverdue reports whether the due date has already passed at scan time
func (d DueBill) IsOverdue() bool {
	return d.DaysRemaining < 0
}

// DueBillCursor is the keyset position of the last bill returned by a scan page
type DueBillCursor struct {
	DueDate time.Time
	ID      int64
}
