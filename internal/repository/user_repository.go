package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/service"
)

const uniqueViolation = "23505"

// UserRepository implements service.UserRepository
type UserRepository struct {
	q queryable
}

const userColumns = `id, email, username, is_active, is_admin, reward_points, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.IsActive,
		&user.IsAdmin,
		&user.RewardPoints,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by id, returning nil when no such user exists
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// Create inserts a new user with a zero point balance
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, is_active, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	created, err := scanUser(r.q.QueryRowContext(ctx, query, user.Email, user.Username, user.IsActive, user.IsAdmin))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: email or username already registered", service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = *created
	return nil
}

// AddPoints increases the balance and returns the updated user, or nil if the user does not exist
func (r *UserRepository) AddPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET reward_points = reward_points + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRowContext(ctx, query, amount, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add points for user %d: %w", id, err)
	}
	return user, nil
}

// DeductPoints decreases the balance only if it covers amount. It returns nil when the
// user does not exist or the balance is insufficient; the row lock taken by the UPDATE
// serializes concurrent deductions for the same user.
func (r *UserRepository) DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET reward_points = reward_points - $1, updated_at = NOW()
		WHERE id = $2 AND reward_points >= $1
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRowContext(ctx, query, amount, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deduct points for user %d: %w", id, err)
	}
	return user, nil
}

// SetActive enables or disables an account, returning nil when the user does not exist
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	query := `
		UPDATE users
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRowContext(ctx, query, active, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return user, nil
}

// Totals counts all and active users and sums their balances
func (r *UserRepository) Totals(ctx context.Context) (models.UserTotals, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active), COALESCE(SUM(reward_points), 0)
		FROM users`

	var totals models.UserTotals
	err := r.q.QueryRowContext(ctx, query).Scan(&totals.Total, &totals.Active, &totals.TotalPoints)
	if err != nil {
		return models.UserTotals{}, fmt.Errorf("failed to count users: %w", err)
	}
	return totals, nil
}
