package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/payzen/internal/models"
)

// Template names the message an intent renders to
type Template string

const (
	TemplateBillReminder     Template = "bill_reminder"
	TemplateBillCreated      Template = "bill_created"
	TemplatePaymentConfirmed Template = "payment_confirmed"
	TemplateRewardClaimed    Template = "reward_claimed"
	TemplateLowPoints        Template = "low_points"
)

// Intent is a request to notify someone. It carries data, not rendered text, so that
// producers never wait on delivery.
type Intent struct {
	ID          uuid.UUID
	Destination string
	Username    string
	Template    Template
	Data        any
}

type BillReminderData struct {
	BillerName    string
	Amount        decimal.Decimal
	DueDate       time.Time
	DaysRemaining int
}

type BillCreatedData struct {
	BillerName string
	Amount     decimal.Decimal
	DueDate    time.Time
}

type PaymentConfirmedData struct {
	BillerName   string
	Amount       decimal.Decimal
	PointsEarned int64
	Balance      int64
}

type RewardClaimedData struct {
	RewardName      string
	PointsUsed      int64
	PointsRemaining int64
}

type LowPointsData struct {
	Balance int64
}

func newIntent(user *models.User, tmpl Template, data any) Intent {
	return Intent{
		ID:          uuid.New(),
		Destination: user.Email,
		Username:    user.Username,
		Template:    tmpl,
		Data:        data,
	}
}

// BillReminder builds the intent sent by the reminder scan
func BillReminder(due models.DueBill) Intent {
	return newIntent(due.Owner, TemplateBillReminder, BillReminderData{
		BillerName:    due.Bill.BillerName,
		Amount:        due.Bill.Amount,
		DueDate:       due.Bill.DueDate,
		DaysRemaining: due.DaysRemaining,
	})
}

func BillCreated(owner *models.User, bill *models.Bill) Intent {
	return newIntent(owner, TemplateBillCreated, BillCreatedData{
		BillerName: bill.BillerName,
		Amount:     bill.Amount,
		DueDate:    bill.DueDate,
	})
}

func PaymentConfirmed(owner *models.User, bill *models.Bill, pointsEarned int64) Intent {
	return newIntent(owner, TemplatePaymentConfirmed, PaymentConfirmedData{
		BillerName:   bill.BillerName,
		Amount:       bill.Amount,
		PointsEarned: pointsEarned,
		Balance:      owner.RewardPoints,
	})
}

func RewardClaimed(user *models.User, claim *models.RewardClaim) Intent {
	return newIntent(user, TemplateRewardClaimed, RewardClaimedData{
		RewardName:      claim.RewardName,
		PointsUsed:      claim.PointsUsed,
		PointsRemaining: user.RewardPoints,
	})
}

func LowPoints(user *models.User) Intent {
	return newIntent(user, TemplateLowPoints, LowPointsData{Balance: user.RewardPoints})
}
