package models

import "time"

// User represents a user in the system
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	RewardPoints int64     `json:"reward_points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserDetails is the admin view of one account with its activity counts
type UserDetails struct {
	*User
	TotalBills     int `json:"total_bills"`
	PaidBills      int `json:"paid_bills"`
	RewardsClaimed int `json:"rewards_claimed"`
}
