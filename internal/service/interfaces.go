package service

import (
	"context"
	"time"

	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/notification"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// Create inserts a new user with a zero balance
	Create(ctx context.Context, user *models.User) error

	// AddPoints increases the balance, returning nil when the user does not exist
	AddPoints(ctx context.Context, id int64, amount int64) (*models.User, error)

	// DeductPoints decreases the balance only when it covers amount, returning nil otherwise
	DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error)

	// SetActive enables or disables an account, returning nil when the user does not exist
	SetActive(ctx context.Context, id int64, active bool) (*models.User, error)

	Totals(ctx context.Context) (models.UserTotals, error)
}

// BillRepository defines the interface for bill data access
type BillRepository interface {
	Create(ctx context.Context, bill *models.Bill) error

	// GetByOwner returns nil when the bill does not exist or belongs to another user
	GetByOwner(ctx context.Context, id, ownerID int64) (*models.Bill, error)

	// GetByOwnerForUpdate is GetByOwner holding a row lock for the rest of the transaction
	GetByOwnerForUpdate(ctx context.Context, id, ownerID int64) (*models.Bill, error)

	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Bill, error)

	// Update changes an outstanding bill; false when nothing matched
	Update(ctx context.Context, bill *models.Bill) (bool, error)

	// MarkPaid flips an outstanding bill to paid; false when it was already paid
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error)

	// ListDue pages through outstanding bills due on or before dueBy, ordered by (due_date, id)
	ListDue(ctx context.Context, dueBy time.Time, after *models.DueBillCursor, limit int) ([]models.DueBill, error)

	CountByOwner(ctx context.Context, ownerID int64) (total, paid int, err error)

	// Totals aggregates all bills, counting outstanding bills due on or before dueBy as due
	Totals(ctx context.Context, dueBy time.Time) (models.BillTotals, error)
}

// RewardRepository defines the interface for the reward catalog
type RewardRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Reward, error)
	ListActive(ctx context.Context) ([]*models.Reward, error)
	Create(ctx context.Context, reward *models.Reward) error
	SetActive(ctx context.Context, id int64, active bool) (*models.Reward, error)
}

// RewardClaimRepository defines the interface for the append-only claim log
type RewardClaimRepository interface {
	Create(ctx context.Context, claim *models.RewardClaim) error
	ListByUser(ctx context.Context, userID int64) ([]*models.RewardClaim, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Count(ctx context.Context) (int, error)
}

// Store groups the repositories and opens transactions over them
type Store interface {
	Users() UserRepository
	Bills() BillRepository
	Rewards() RewardRepository
	Claims() RewardClaimRepository

	// WithTx runs fn against repositories bound to one transaction, committing when fn
	// returns nil and rolling back otherwise
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// IntentPublisher accepts notification intents without waiting for delivery
type IntentPublisher interface {
	Publish(intent notification.Intent) error
}
