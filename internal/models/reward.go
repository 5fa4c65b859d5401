package models

import "time"

// Reward is a catalog entry that can be exchanged for points
type Reward struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PointsRequired int64     `json:"points_required"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// RewardClaim records a point-spend event. PointsUsed is the reward cost at claim time.
type RewardClaim struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	RewardID   int64     `json:"reward_id"`
	RewardName string    `json:"reward_name,omitempty"`
	PointsUsed int64     `json:"points_used"`
	ClaimedAt  time.Time `json:"claimed_at"`
}
