package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/models"
)

// RewardService manages the reward catalog and claim history. Point movements go through Ledger.
type RewardService struct {
	store Store
	log   *logrus.Logger
}

func NewRewardService(store Store, log *logrus.Logger) *RewardService {
	return &RewardService{store: store, log: log}
}

// ListRewards returns the claimable catalog
func (s *RewardService) ListRewards(ctx context.Context) ([]*models.Reward, error) {
	rewards, err := s.store.Rewards().ListActive(ctx)
	if err != nil {
		return nil, asTransactionError(err)
	}
	return rewards, nil
}

// CreateReward adds an active catalog entry
func (s *RewardService) CreateReward(ctx context.Context, name, description string, pointsRequired int64) (*models.Reward, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("reward name is required")
	}
	if pointsRequired <= 0 {
		return nil, validationError("points required must be positive, got %d", pointsRequired)
	}

	reward := &models.Reward{
		Name:           name,
		Description:    strings.TrimSpace(description),
		PointsRequired: pointsRequired,
		IsActive:       true,
	}
	if err := s.store.Rewards().Create(ctx, reward); err != nil {
		return nil, asTransactionError(err)
	}

	s.log.Infof("Reward created: %s (%d points)", reward.Name, reward.PointsRequired)
	return reward, nil
}

// SetRewardActive enables or disables a reward. Disabled rewards stay referenced by past claims.
func (s *RewardService) SetRewardActive(ctx context.Context, rewardID int64, active bool) (*models.Reward, error) {
	reward, err := s.store.Rewards().SetActive(ctx, rewardID, active)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if reward == nil {
		return nil, fmt.Errorf("%w: reward %d", ErrNotFound, rewardID)
	}

	s.log.WithField("reward_id", rewardID).Infof("Reward active set to %t", active)
	return reward, nil
}

// ListClaims returns the user's claims, newest first
func (s *RewardService) ListClaims(ctx context.Context, userID int64) ([]*models.RewardClaim, error) {
	claims, err := s.store.Claims().ListByUser(ctx, userID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	return claims, nil
}
