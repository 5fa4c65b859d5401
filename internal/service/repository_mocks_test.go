package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Dan9191/payzen/internal/models"
)

// MockStore hands out its mock repositories and runs transactions inline
type MockStore struct {
	mock.Mock
	users   *MockUserRepository
	bills   *MockBillRepository
	rewards *MockRewardRepository
	claims  *MockRewardClaimRepository
}

func newMockStore() *MockStore {
	return &MockStore{
		users:   &MockUserRepository{},
		bills:   &MockBillRepository{},
		rewards: &MockRewardRepository{},
		claims:  &MockRewardClaimRepository{},
	}
}

func (m *MockStore) Users() UserRepository         { return m.users }
func (m *MockStore) Bills() BillRepository         { return m.bills }
func (m *MockStore) Rewards() RewardRepository     { return m.rewards }
func (m *MockStore) Claims() RewardClaimRepository { return m.claims }

// WithTx runs fn against the same mocks. A configured error replaces a successful fn result, like a failed commit.
func (m *MockStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	args := m.Called(ctx)
	if err := fn(m); err != nil {
		return err
	}
	return args.Error(0)
}

func (m *MockStore) assertExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.bills.AssertExpectations(t)
	m.rewards.AssertExpectations(t)
	m.claims.AssertExpectations(t)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) AddPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Totals(ctx context.Context) (models.UserTotals, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.UserTotals), args.Error(1)
}

// MockBillRepository is a mock implementation of BillRepository
type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) Create(ctx context.Context, bill *models.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockBillRepository) GetByOwner(ctx context.Context, id, ownerID int64) (*models.Bill, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillRepository) GetByOwnerForUpdate(ctx context.Context, id, ownerID int64) (*models.Bill, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Bill, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bill), args.Error(1)
}

func (m *MockBillRepository) Update(ctx context.Context, bill *models.Bill) (bool, error) {
	args := m.Called(ctx, bill)
	return args.Bool(0), args.Error(1)
}

func (m *MockBillRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, id, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockBillRepository) ListDue(ctx context.Context, dueBy time.Time, after *models.DueBillCursor, limit int) ([]models.DueBill, error) {
	args := m.Called(ctx, dueBy, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DueBill), args.Error(1)
}

func (m *MockBillRepository) CountByOwner(ctx context.Context, ownerID int64) (int, int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockBillRepository) Totals(ctx context.Context, dueBy time.Time) (models.BillTotals, error) {
	args := m.Called(ctx, dueBy)
	return args.Get(0).(models.BillTotals), args.Error(1)
}

// MockRewardRepository is a mock implementation of RewardRepository
type MockRewardRepository struct {
	mock.Mock
}

func (m *MockRewardRepository) GetByID(ctx context.Context, id int64) (*models.Reward, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reward), args.Error(1)
}

func (m *MockRewardRepository) ListActive(ctx context.Context) ([]*models.Reward, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reward), args.Error(1)
}

func (m *MockRewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

func (m *MockRewardRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Reward, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reward), args.Error(1)
}

// MockRewardClaimRepository is a mock implementation of RewardClaimRepository
type MockRewardClaimRepository struct {
	mock.Mock
}

func (m *MockRewardClaimRepository) Create(ctx context.Context, claim *models.RewardClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockRewardClaimRepository) ListByUser(ctx context.Context, userID int64) ([]*models.RewardClaim, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RewardClaim), args.Error(1)
}

func (m *MockRewardClaimRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRewardClaimRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
