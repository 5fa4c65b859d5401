package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/payzen/internal/models"
)

// RewardRepository implements service.RewardRepository
type RewardRepository struct {
	q queryable
}

const rewardColumns = `id, name, description, points_required, is_active, created_at`

func scanReward(row interface{ Scan(dest ...any) error }) (*models.Reward, error) {
	reward := &models.Reward{}
	err := row.Scan(
		&reward.ID,
		&reward.Name,
		&reward.Description,
		&reward.PointsRequired,
		&reward.IsActive,
		&reward.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// GetByID retrieves a reward by id, returning nil when it does not exist
func (r *RewardRepository) GetByID(ctx context.Context, id int64) (*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`

	reward, err := scanReward(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", id, err)
	}
	return reward, nil
}

// ListActive returns the claimable catalog, cheapest first
func (r *RewardRepository) ListActive(ctx context.Context) ([]*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE is_active ORDER BY points_required, id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	rewards := make([]*models.Reward, 0)
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rewards: %w", err)
	}
	return rewards, nil
}

// Create inserts a new catalog entry
func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	query := `
		INSERT INTO rewards (name, description, points_required, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + rewardColumns

	created, err := scanReward(r.q.QueryRowContext(ctx, query,
		reward.Name, reward.Description, reward.PointsRequired, reward.IsActive))
	if err != nil {
		return fmt.Errorf("failed to create reward: %w", err)
	}
	*reward = *created
	return nil
}

// SetActive toggles the active flag, returning nil when the reward does not exist
func (r *RewardRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Reward, error) {
	query := `UPDATE rewards SET is_active = $1 WHERE id = $2 RETURNING ` + rewardColumns

	reward, err := scanReward(r.q.QueryRowContext(ctx, query, active, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update reward %d: %w", id, err)
	}
	return reward, nil
}
