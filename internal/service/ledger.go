package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/notification"
)

// Ledger owns every change to a user's reward points. Credit and DebitForClaim are the only
// mutation paths; bill payments credit through the same code inside their own transaction.
type Ledger struct {
	store               Store
	notifier            IntentPublisher
	log                 *logrus.Logger
	lowBalanceThreshold int64
}

// NewLedger creates a ledger. A non-positive threshold falls back to DefaultLowBalanceThreshold.
func NewLedger(store Store, notifier IntentPublisher, log *logrus.Logger, lowBalanceThreshold int64) *Ledger {
	if lowBalanceThreshold <= 0 {
		lowBalanceThreshold = DefaultLowBalanceThreshold
	}
	return &Ledger{
		store:               store,
		notifier:            notifier,
		log:                 log,
		lowBalanceThreshold: lowBalanceThreshold,
	}
}

// GetUser returns a user with its current balance
func (l *Ledger) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := l.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}

// Credit adds amount points to the user's balance
func (l *Ledger) Credit(ctx context.Context, userID int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, validationError("credit amount must be positive, got %d", amount)
	}

	var user *models.User
	err := l.store.WithTx(ctx, func(tx Store) error {
		var err error
		user, err = l.credit(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return nil, asTransactionError(err)
	}

	l.log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"balance": user.RewardPoints,
	}).Info("Points credited")
	return user, nil
}

// credit applies a credit within the caller's transaction
func (l *Ledger) credit(ctx context.Context, tx Store, userID int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, validationError("credit amount must be positive, got %d", amount)
	}
	user, err := tx.Users().AddPoints(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}

// DebitForClaim exchanges points for a reward. The balance check and the decrement are one
// conditional update, so concurrent claims cannot overdraw the balance.
func (l *Ledger) DebitForClaim(ctx context.Context, userID, rewardID int64) (*models.RewardClaim, error) {
	var (
		claim *models.RewardClaim
		user  *models.User
	)

	err := l.store.WithTx(ctx, func(tx Store) error {
		reward, err := tx.Rewards().GetByID(ctx, rewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return fmt.Errorf("%w: reward %d", ErrNotFound, rewardID)
		}
		if !reward.IsActive {
			return fmt.Errorf("%w: reward %d is not available", ErrInsufficientPoints, rewardID)
		}

		current, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		if current.RewardPoints < reward.PointsRequired {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, current.RewardPoints, reward.PointsRequired)
		}

		user, err = tx.Users().DeductPoints(ctx, userID, reward.PointsRequired)
		if err != nil {
			return err
		}
		if user == nil {
			// balance changed between the read and the conditional update
			return fmt.Errorf("%w: balance no longer covers %d", ErrInsufficientPoints, reward.PointsRequired)
		}

		claim = &models.RewardClaim{
			UserID:     userID,
			RewardID:   reward.ID,
			RewardName: reward.Name,
			PointsUsed: reward.PointsRequired,
		}
		return tx.Claims().Create(ctx, claim)
	})
	if err != nil {
		return nil, asTransactionError(err)
	}

	l.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"reward_id": rewardID,
		"points":    claim.PointsUsed,
		"balance":   user.RewardPoints,
	}).Info("Reward claimed")

	publish(l.log, l.notifier, notification.RewardClaimed(user, claim))
	if l.LowBalanceCheck(user) {
		publish(l.log, l.notifier, notification.LowPoints(user))
	}
	return claim, nil
}

// LowBalanceCheck reports whether the user's balance is below the configured threshold
func (l *Ledger) LowBalanceCheck(user *models.User) bool {
	return user.RewardPoints < l.lowBalanceThreshold
}
