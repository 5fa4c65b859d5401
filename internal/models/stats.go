package models

import "github.com/shopspring/decimal"

// UserTotals aggregates every account
type UserTotals struct {
	Total       int
	Active      int
	TotalPoints int64
}

// BillTotals aggregates every bill. Due and DueAmount cover outstanding bills up to a cutoff date.
type BillTotals struct {
	Total     int
	Paid      int
	Due       int
	DueAmount decimal.Decimal
}

// DashboardStats is the admin overview of the whole system
type DashboardStats struct {
	TotalUsers    int             `json:"total_users"`
	ActiveUsers   int             `json:"active_users"`
	TotalBills    int             `json:"total_bills"`
	PaidBills     int             `json:"paid_bills"`
	DueBills      int             `json:"due_bills"`
	DueAmount     decimal.Decimal `json:"due_amount"`
	WindowDays    int             `json:"window_days"`
	RewardsIssued int             `json:"rewards_issued"`
	TotalPoints   int64           `json:"total_points"`
}
