package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/notification"
)

const defaultScanPageSize = 100

var maxBillAmount = decimal.New(1, 10)

// BillInput carries the user-editable fields of a bill as received from the request layer
type BillInput struct {
	BillerName       string
	Category         string
	Amount           string
	DueDate          string
	ReminderInterval int
}

func (in BillInput) parse() (*models.Bill, error) {
	name := strings.TrimSpace(in.BillerName)
	if name == "" {
		return nil, validationError("biller name is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, validationError("category is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return nil, validationError("amount %q is not a number", in.Amount)
	}
	if !amount.IsPositive() {
		return nil, validationError("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, validationError("amount has more than two decimal places")
	}
	if amount.GreaterThanOrEqual(maxBillAmount) {
		return nil, validationError("amount is too large")
	}

	due, err := time.Parse(models.DateLayout, strings.TrimSpace(in.DueDate))
	if err != nil {
		return nil, validationError("due date %q must be formatted as YYYY-MM-DD", in.DueDate)
	}
	if in.ReminderInterval < 0 {
		return nil, validationError("reminder interval must not be negative")
	}

	return &models.Bill{
		BillerName:       name,
		Category:         category,
		Amount:           amount,
		DueDate:          due,
		ReminderInterval: in.ReminderInterval,
	}, nil
}

// BillService manages the bill lifecycle: creation, payment and due-bill scans
type BillService struct {
	store    Store
	ledger   *Ledger
	notifier IntentPublisher
	log      *logrus.Logger
	clock    clock
	pageSize int
}

// NewBillService initializes a new bill service. loc decides which calendar day "today" is.
func NewBillService(store Store, ledger *Ledger, notifier IntentPublisher, log *logrus.Logger, loc *time.Location) *BillService {
	return &BillService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		log:      log,
		clock:    newClock(loc),
		pageSize: defaultScanPageSize,
	}
}

// CreateBill registers a new outstanding bill for ownerID
func (s *BillService) CreateBill(ctx context.Context, ownerID int64, in BillInput) (*models.Bill, error) {
	bill, err := in.parse()
	if err != nil {
		return nil, err
	}

	owner, err := s.store.Users().GetByID(ctx, ownerID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, ownerID)
	}

	bill.OwnerID = ownerID
	if err := s.store.Bills().Create(ctx, bill); err != nil {
		return nil, asTransactionError(err)
	}

	s.log.WithFields(logrus.Fields{
		"bill_id": bill.ID,
		"user_id": ownerID,
	}).Infof("Bill created: %s due %s", bill.BillerName, bill.DueDate.Format(models.DateLayout))

	publish(s.log, s.notifier, notification.BillCreated(owner, bill))
	return bill, nil
}

// ListBills returns all bills owned by ownerID
func (s *BillService) ListBills(ctx context.Context, ownerID int64) ([]*models.Bill, error) {
	bills, err := s.store.Bills().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	return bills, nil
}

// UpdateBill edits an outstanding bill. Paid bills are immutable.
func (s *BillService) UpdateBill(ctx context.Context, ownerID, billID int64, in BillInput) (*models.Bill, error) {
	changes, err := in.parse()
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Bills().GetByOwner(ctx, billID, ownerID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: bill %d", ErrNotFound, billID)
	}
	if existing.IsPaid {
		return nil, validationError("bill %d is already paid", billID)
	}

	changes.ID = billID
	changes.OwnerID = ownerID
	updated, err := s.store.Bills().Update(ctx, changes)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if !updated {
		return nil, validationError("bill %d is already paid", billID)
	}
	return changes, nil
}

// MarkPaid settles a bill and credits the owner in a single transaction. Paying an already
// paid bill is a no-op that returns the bill with zero points.
func (s *BillService) MarkPaid(ctx context.Context, billID, ownerID int64) (*models.Bill, int64, error) {
	var (
		bill   *models.Bill
		owner  *models.User
		points int64
	)

	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		bill, err = tx.Bills().GetByOwnerForUpdate(ctx, billID, ownerID)
		if err != nil {
			return err
		}
		if bill == nil {
			return fmt.Errorf("%w: bill %d", ErrNotFound, billID)
		}
		if bill.IsPaid {
			return nil
		}

		paidAt := s.clock.now()
		changed, err := tx.Bills().MarkPaid(ctx, bill.ID, paidAt)
		if err != nil {
			return err
		}
		if !changed {
			bill, err = tx.Bills().GetByOwner(ctx, billID, ownerID)
			return err
		}

		earned := EarnedPoints(bill.DueDate, s.clock.today())
		owner, err = s.ledger.credit(ctx, tx, ownerID, earned)
		if err != nil {
			return err
		}

		bill.IsPaid = true
		bill.PaidAt = &paidAt
		points = earned
		return nil
	})
	if err != nil {
		return nil, 0, asTransactionError(err)
	}

	entry := s.log.WithFields(logrus.Fields{"bill_id": billID, "user_id": ownerID})
	if points == 0 {
		entry.Debug("Bill already paid, nothing to do")
		return bill, 0, nil
	}

	entry.WithField("points", points).Info("Bill paid")
	publish(s.log, s.notifier, notification.PaymentConfirmed(owner, bill, points))
	return bill, points, nil
}

// ScanDueBills yields every outstanding bill due within windowDays of today, overdue ones
// included, paired with its owner. Pages are fetched lazily as the sequence is consumed and
// every range over the sequence starts a fresh scan. The scan only reads, so a bill paid
// while the scan runs may still be yielded.
func (s *BillService) ScanDueBills(ctx context.Context, windowDays int) iter.Seq2[models.DueBill, error] {
	return func(yield func(models.DueBill, error) bool) {
		if windowDays < 0 {
			yield(models.DueBill{}, validationError("window must not be negative, got %d", windowDays))
			return
		}

		today := s.clock.today()
		dueBy := today.AddDate(0, 0, windowDays)

		var cursor *models.DueBillCursor
		for {
			page, err := s.store.Bills().ListDue(ctx, dueBy, cursor, s.pageSize)
			if err != nil {
				yield(models.DueBill{}, asTransactionError(err))
				return
			}

			for _, due := range page {
				due.DaysRemaining = daysBetween(today, due.Bill.DueDate)
				if !yield(due, nil) {
					return
				}
			}

			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1].Bill
			cursor = &models.DueBillCursor{DueDate: last.DueDate, ID: last.ID}
		}
	}
}
