package notification

import (
	"fmt"
	"strings"

	"github.com/Dan9191/payzen/internal/models"
)

// Message is a rendered notification
type Message struct {
	Subject string
	Body    string
}

// Renderer turns intents into plain-text messages
type Renderer struct {
	AppName string
	AppURL  string
}

// Render formats the message for an intent
func (r *Renderer) Render(intent Intent) (Message, error) {
	var (
		subject string
		b       strings.Builder
	)
	fmt.Fprintf(&b, "Dear %s,\n\n", intent.Username)

	switch data := intent.Data.(type) {
	case BillReminderData:
		subject = reminderSubject(data)
		amount := data.Amount.StringFixed(2)
		dueDate := data.DueDate.Format(models.DateLayout)
		if data.DaysRemaining < 0 {
			fmt.Fprintf(&b, "Your %s bill of $%s was due on %s and is now overdue.\n"+
				"Please make the payment as soon as possible.\n", data.BillerName, amount, dueDate)
		} else {
			fmt.Fprintf(&b, "This is a reminder that your %s bill of $%s is %s, on %s.\n"+
				"Pay on time to earn your reward points!\n", data.BillerName, amount, dueIn(data.DaysRemaining), dueDate)
		}
		fmt.Fprintf(&b, "\nLog in: %s/login\n", r.AppURL)
	case BillCreatedData:
		subject = fmt.Sprintf("New Bill Added: %s", data.BillerName)
		fmt.Fprintf(&b, "Your bill has been added.\n\nBill: %s\nAmount: $%s\nDue Date: %s\n\n"+
			"We'll send you reminders before the due date.\n",
			data.BillerName, data.Amount.StringFixed(2), data.DueDate.Format(models.DateLayout))
		fmt.Fprintf(&b, "\nView your dashboard: %s/dashboard\n", r.AppURL)
	case PaymentConfirmedData:
		subject = fmt.Sprintf("Payment Confirmed: %s", data.BillerName)
		fmt.Fprintf(&b, "Payment successful!\n\nBill: %s\nAmount Paid: $%s\nPoints Earned: %d\nPoints Balance: %d\n\n"+
			"Thank you for your timely payment!\n",
			data.BillerName, data.Amount.StringFixed(2), data.PointsEarned, data.Balance)
		fmt.Fprintf(&b, "\nView your rewards: %s/rewards\n", r.AppURL)
	case RewardClaimedData:
		subject = fmt.Sprintf("Reward Claimed: %s", data.RewardName)
		fmt.Fprintf(&b, "Congratulations on claiming your reward!\n\nReward: %s\nPoints Used: %d\nPoints Remaining: %d\n",
			data.RewardName, data.PointsUsed, data.PointsRemaining)
	case LowPointsData:
		subject = "Earn More Reward Points!"
		fmt.Fprintf(&b, "Your current points balance is %d.\n\nPay your bills on time to earn more points.\n", data.Balance)
		fmt.Fprintf(&b, "\nView your bills: %s/bills\n", r.AppURL)
	default:
		return Message{}, fmt.Errorf("unsupported notification data %T for template %s", intent.Data, intent.Template)
	}

	fmt.Fprintf(&b, "\nBest regards,\n%s", r.AppName)
	return Message{Subject: subject, Body: b.String()}, nil
}

func reminderSubject(data BillReminderData) string {
	switch {
	case data.DaysRemaining < 0:
		return fmt.Sprintf("Overdue: %s bill was due %s", data.BillerName, data.DueDate.Format(models.DateLayout))
	default:
		return fmt.Sprintf("Reminder: %s bill %s", data.BillerName, dueIn(data.DaysRemaining))
	}
}

func dueIn(days int) string {
	switch days {
	case 0:
		return "due today"
	case 1:
		return "due in 1 day"
	default:
		return fmt.Sprintf("due in %d days", days)
	}
}
