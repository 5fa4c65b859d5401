package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/payzen/internal/models"
)

func TestAdminService_CreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.admin.CreateUser(ctx, " Jane@Example.com ", "jane", false)
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.Zero(t, user.RewardPoints)

	_, err = env.admin.CreateUser(ctx, "jane@example.com", "jane2", false)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdminService_CreateUser_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username string
	}{
		{"empty email", "", "jane"},
		{"not an address", "jane", "jane"},
		{"display name", "Jane <jane@example.com>", "jane"},
		{"blank username", "jane@example.com", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.admin.CreateUser(context.Background(), tt.email, tt.username, false)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAdminService_ToggleUserActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.store.seedUser("admin@example.com", 0)
	user := env.store.seedUser("jane@example.com", 0)

	toggled, err := env.admin.ToggleUserActive(ctx, admin.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.False(t, env.store.user(user.ID).IsActive)

	toggled, err = env.admin.ToggleUserActive(ctx, admin.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = env.admin.ToggleUserActive(ctx, admin.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminService_CannotDeactivateSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.store.seedUser("admin@example.com", 0)

	_, err := env.admin.ToggleUserActive(ctx, admin.ID, admin.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.admin.SetUserActive(ctx, admin.ID, admin.ID, false)
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, env.store.user(admin.ID).IsActive)

	// reactivating yourself is harmless
	self, err := env.admin.SetUserActive(ctx, admin.ID, admin.ID, true)
	require.NoError(t, err)
	assert.True(t, self.IsActive)
}

func TestAdminService_SetUserActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.store.seedUser("admin@example.com", 0)
	user := env.store.seedUser("jane@example.com", 0)

	updated, err := env.admin.SetUserActive(ctx, admin.ID, user.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = env.admin.SetUserActive(ctx, admin.ID, 999, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminService_UserDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.store.seedUser("jane@example.com", 70)
	other := env.store.seedUser("bob@example.com", 0)
	reward := env.store.seedReward("Coffee", 20, true)
	env.store.seedBill(user.ID, "Water", day(3), false)
	env.store.seedBill(user.ID, "Gas", day(-3), true)
	env.store.seedBill(user.ID, "Phone", day(-9), true)
	env.store.seedBill(other.ID, "Water", day(3), true)
	env.store.seedClaim(user.ID, reward.ID, 20)
	env.store.seedClaim(other.ID, reward.ID, 20)

	details, err := env.admin.UserDetails(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, details.ID)
	assert.Equal(t, int64(70), details.RewardPoints)
	assert.Equal(t, 3, details.TotalBills)
	assert.Equal(t, 2, details.PaidBills)
	assert.Equal(t, 1, details.RewardsClaimed)

	_, err = env.admin.UserDetails(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane := env.store.seedUser("jane@example.com", 70)
	bob := env.store.seedUser("bob@example.com", 30)
	reward := env.store.seedReward("Coffee", 20, true)
	env.store.seedBill(jane.ID, "Overdue", day(-2), false)
	env.store.seedBill(jane.ID, "Window edge", day(7), false)
	env.store.seedBill(jane.ID, "Too far", day(8), false)
	env.store.seedBill(bob.ID, "Settled", day(1), true)
	env.store.seedClaim(jane.ID, reward.ID, 20)

	_, err := env.admin.ToggleUserActive(ctx, jane.ID, bob.ID)
	require.NoError(t, err)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 4, stats.TotalBills)
	assert.Equal(t, 1, stats.PaidBills)
	assert.Equal(t, 2, stats.DueBills)
	assert.True(t, decimal.NewFromInt(40).Equal(stats.DueAmount), stats.DueAmount.String())
	assert.Equal(t, 7, stats.WindowDays)
	assert.Equal(t, 1, stats.RewardsIssued)
	assert.Equal(t, int64(100), stats.TotalPoints)
}

func TestAdminService_StoreFailures(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := newMockStore()
	admin := NewAdminService(store, logger, time.UTC, 7)
	ctx := context.Background()
	boom := errors.New("connection reset")

	store.users.On("Totals", ctx).Return(models.UserTotals{}, boom)
	store.On("WithTx", ctx).Return(nil)
	store.users.On("GetByID", ctx, int64(8)).Return(&models.User{ID: 8, IsActive: true}, nil)
	store.users.On("SetActive", ctx, int64(8), false).Return(nil, boom)

	_, err := admin.Stats(ctx)
	assert.ErrorIs(t, err, ErrTransaction)

	_, err = admin.ToggleUserActive(ctx, 1, 8)
	assert.ErrorIs(t, err, ErrTransaction)

	store.bills.AssertNotCalled(t, "Totals", mock.Anything, mock.Anything)
	store.assertExpectations(t)
}
