package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/payzen/internal/models"
)

// BillRepository implements service.BillRepository
type BillRepository struct {
	q queryable
}

const billColumns = `b.id, b.owner_id, b.biller_name, b.category, b.amount, b.due_date,
	b.reminder_interval_days, b.is_paid, b.paid_at, b.created_at`

func billDest(bill *models.Bill, paidAt *sql.NullTime) []any {
	return []any{
		&bill.ID,
		&bill.OwnerID,
		&bill.BillerName,
		&bill.Category,
		&bill.Amount,
		&bill.DueDate,
		&bill.ReminderInterval,
		&bill.IsPaid,
		paidAt,
		&bill.CreatedAt,
	}
}

func finishBill(bill *models.Bill, paidAt sql.NullTime) {
	bill.DueDate = dateOnly(bill.DueDate)
	if paidAt.Valid {
		t := paidAt.Time
		bill.PaidAt = &t
	}
}

func scanBill(row interface{ Scan(dest ...any) error }) (*models.Bill, error) {
	bill := &models.Bill{}
	var paidAt sql.NullTime
	if err := row.Scan(billDest(bill, &paidAt)...); err != nil {
		return nil, err
	}
	finishBill(bill, paidAt)
	return bill, nil
}

// Create inserts a new outstanding bill
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	query := `
		INSERT INTO bills AS b (owner_id, biller_name, category, amount, due_date, reminder_interval_days)
		VALUES ($1, $2, $3, $4, $5::date, $6)
		RETURNING ` + billColumns

	created, err := scanBill(r.q.QueryRowContext(ctx, query,
		bill.OwnerID,
		bill.BillerName,
		bill.Category,
		bill.Amount,
		bill.DueDate.Format(models.DateLayout),
		bill.ReminderInterval,
	))
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	*bill = *created
	return nil
}

// GetByOwner retrieves a bill owned by ownerID, returning nil when there is none
func (r *BillRepository) GetByOwner(ctx context.Context, id, ownerID int64) (*models.Bill, error) {
	return r.getByOwner(ctx, id, ownerID, "")
}

// GetByOwnerForUpdate is GetByOwner with a row lock held until the transaction ends
func (r *BillRepository) GetByOwnerForUpdate(ctx context.Context, id, ownerID int64) (*models.Bill, error) {
	return r.getByOwner(ctx, id, ownerID, " FOR UPDATE")
}

func (r *BillRepository) getByOwner(ctx context.Context, id, ownerID int64, lock string) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills b WHERE b.id = $1 AND b.owner_id = $2` + lock

	bill, err := scanBill(r.q.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %d: %w", id, err)
	}
	return bill, nil
}

// ListByOwner returns every bill of a user, soonest due first
func (r *BillRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills b WHERE b.owner_id = $1 ORDER BY b.due_date, b.id`

	rows, err := r.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills for user %d: %w", ownerID, err)
	}
	defer rows.Close()

	bills := make([]*models.Bill, 0)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

// Update rewrites the editable fields of an outstanding bill. It reports false when the
// bill does not exist, belongs to someone else or is already paid.
func (r *BillRepository) Update(ctx context.Context, bill *models.Bill) (bool, error) {
	query := `
		UPDATE bills AS b
		SET biller_name = $1, category = $2, amount = $3, due_date = $4::date, reminder_interval_days = $5
		WHERE b.id = $6 AND b.owner_id = $7 AND NOT b.is_paid
		RETURNING ` + billColumns

	updated, err := scanBill(r.q.QueryRowContext(ctx, query,
		bill.BillerName,
		bill.Category,
		bill.Amount,
		bill.DueDate.Format(models.DateLayout),
		bill.ReminderInterval,
		bill.ID,
		bill.OwnerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update bill %d: %w", bill.ID, err)
	}
	*bill = *updated
	return true, nil
}

// MarkPaid flips an outstanding bill to paid. It reports false when the bill was already paid.
func (r *BillRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	query := `
		UPDATE bills
		SET is_paid = TRUE, paid_at = $1
		WHERE id = $2 AND NOT is_paid`

	result, err := r.q.ExecContext(ctx, query, paidAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark bill %d paid: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark bill %d paid: %w", id, err)
	}
	return affected == 1, nil
}

// ListDue returns up to limit outstanding bills due on or before dueBy, joined with their
// owners and ordered by (due_date, id). A non-nil after resumes right past that position.
func (r *BillRepository) ListDue(ctx context.Context, dueBy time.Time, after *models.DueBillCursor, limit int) ([]models.DueBill, error) {
	args := []any{dueBy.Format(models.DateLayout), limit}
	keyset := ""
	if after != nil {
		keyset = ` AND (b.due_date, b.id) > ($3::date, $4)`
		args = append(args, after.DueDate.Format(models.DateLayout), after.ID)
	}

	query := `
		SELECT ` + billColumns + `,
			u.id, u.email, u.username, u.is_active, u.is_admin, u.reward_points, u.created_at, u.updated_at
		FROM bills b
		JOIN users u ON u.id = b.owner_id
		WHERE NOT b.is_paid AND b.due_date <= $1::date` + keyset + `
		ORDER BY b.due_date, b.id
		LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due bills: %w", err)
	}
	defer rows.Close()

	due := make([]models.DueBill, 0, limit)
	for rows.Next() {
		bill := &models.Bill{}
		owner := &models.User{}
		var paidAt sql.NullTime
		dest := append(billDest(bill, &paidAt),
			&owner.ID,
			&owner.Email,
			&owner.Username,
			&owner.IsActive,
			&owner.IsAdmin,
			&owner.RewardPoints,
			&owner.CreatedAt,
			&owner.UpdatedAt,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan due bill: %w", err)
		}
		finishBill(bill, paidAt)
		due = append(due, models.DueBill{Bill: bill, Owner: owner})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due bills: %w", err)
	}
	return due, nil
}

// CountByOwner returns how many bills a user has and how many of them are paid
func (r *BillRepository) CountByOwner(ctx context.Context, ownerID int64) (total, paid int, err error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_paid) FROM bills WHERE owner_id = $1`

	if err := r.q.QueryRowContext(ctx, query, ownerID).Scan(&total, &paid); err != nil {
		return 0, 0, fmt.Errorf("failed to count bills for user %d: %w", ownerID, err)
	}
	return total, paid, nil
}

// Totals aggregates all bills. Outstanding bills due on or before dueBy, overdue ones
// included, are counted and summed as due.
func (r *BillRepository) Totals(ctx context.Context, dueBy time.Time) (models.BillTotals, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_paid),
			COUNT(*) FILTER (WHERE NOT is_paid AND due_date <= $1::date),
			COALESCE(SUM(amount) FILTER (WHERE NOT is_paid AND due_date <= $1::date), 0)
		FROM bills`

	var totals models.BillTotals
	err := r.q.QueryRowContext(ctx, query, dueBy.Format(models.DateLayout)).
		Scan(&totals.Total, &totals.Paid, &totals.Due, &totals.DueAmount)
	if err != nil {
		return models.BillTotals{}, fmt.Errorf("failed to count bills: %w", err)
	}
	return totals, nil
}
