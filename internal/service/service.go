package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/notification"
)

// Error taxonomy. Operations wrap these with context; callers match with errors.Is.
var (
	// ErrNotFound means the referenced bill, reward or user does not exist or is not owned by the caller
	ErrNotFound = errors.New("not found")
	// ErrValidation means malformed amount, date or points input
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientPoints means the claim cost exceeds the balance or the reward is inactive
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrConflict means the record clashes with an existing one, such as a registered email
	ErrConflict = errors.New("already exists")
	// ErrTransaction means the store failed to apply an atomic operation; nothing was changed
	ErrTransaction = errors.New("transaction failed")
)

const (
	BasePoints                = 10
	EarlyPaymentBonus         = 5
	EarlyPaymentThresholdDays = 5

	DefaultLowBalanceThreshold = 50
	DefaultReminderWindowDays  = 7
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// asTransactionError leaves domain errors untouched and marks everything else as a store failure
func asTransactionError(err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{ErrNotFound, ErrValidation, ErrInsufficientPoints, ErrConflict, ErrTransaction} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrTransaction, err)
}

// clock supplies "now" and the zone used to decide which calendar day it is
type clock struct {
	now func() time.Time
	loc *time.Location
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{now: time.Now, loc: loc}
}

// today returns the current calendar date as midnight UTC, matching how due dates are stored
func (c clock) today() time.Time {
	y, m, d := c.now().In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// EarnedPoints returns the points for paying a bill on the given day: the base award plus
// the early-payment bonus when the due date is more than the threshold days away.
func EarnedPoints(dueDate, today time.Time) int64 {
	points := int64(BasePoints)
	if daysBetween(today, dueDate) > EarlyPaymentThresholdDays {
		points += EarlyPaymentBonus
	}
	return points
}

func publish(log *logrus.Logger, publisher IntentPublisher, intent notification.Intent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(intent); err != nil {
		log.WithFields(logrus.Fields{
			"template":    intent.Template,
			"destination": intent.Destination,
		}).Warnf("Failed to enqueue notification: %v", err)
	}
}
