package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/payzen/internal/models"
)

// RewardClaimRepository implements service.RewardClaimRepository. Claims are append-only.
type RewardClaimRepository struct {
	q queryable
}

// Create appends a claim record; claim.ID and claim.ClaimedAt are filled from the database
func (r *RewardClaimRepository) Create(ctx context.Context, claim *models.RewardClaim) error {
	query := `
		INSERT INTO reward_claims (user_id, reward_id, points_used)
		VALUES ($1, $2, $3)
		RETURNING id, claimed_at`

	err := r.q.QueryRowContext(ctx, query, claim.UserID, claim.RewardID, claim.PointsUsed).
		Scan(&claim.ID, &claim.ClaimedAt)
	if err != nil {
		return fmt.Errorf("failed to create reward claim: %w", err)
	}
	return nil
}

// ListByUser returns a user's claims, newest first, with the reward name attached
func (r *RewardClaimRepository) ListByUser(ctx context.Context, userID int64) ([]*models.RewardClaim, error) {
	query := `
		SELECT c.id, c.user_id, c.reward_id, rw.name, c.points_used, c.claimed_at
		FROM reward_claims c
		JOIN rewards rw ON rw.id = c.reward_id
		WHERE c.user_id = $1
		ORDER BY c.claimed_at DESC, c.id DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims for user %d: %w", userID, err)
	}
	defer rows.Close()

	claims := make([]*models.RewardClaim, 0)
	for rows.Next() {
		claim := &models.RewardClaim{}
		if err := rows.Scan(&claim.ID, &claim.UserID, &claim.RewardID, &claim.RewardName, &claim.PointsUsed, &claim.ClaimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}
	return claims, nil
}

// CountByUser returns how many rewards a user has claimed
func (r *RewardClaimRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reward_claims WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count claims for user %d: %w", userID, err)
	}
	return n, nil
}

// Count returns how many rewards have been claimed in total
func (r *RewardClaimRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reward_claims`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return n, nil
}
