package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/models"
)

// AdminService provisions and manages accounts and reports system-wide statistics
type AdminService struct {
	store      Store
	log        *logrus.Logger
	clock      clock
	windowDays int
}

// NewAdminService creates an admin service. windowDays is the due-bill window used by Stats;
// a negative value falls back to DefaultReminderWindowDays.
func NewAdminService(store Store, log *logrus.Logger, loc *time.Location, windowDays int) *AdminService {
	if windowDays < 0 {
		windowDays = DefaultReminderWindowDays
	}
	return &AdminService{
		store:      store,
		log:        log,
		clock:      newClock(loc),
		windowDays: windowDays,
	}
}

// CreateUser registers an active account with a zero balance
func (s *AdminService) CreateUser(ctx context.Context, email, username string, isAdmin bool) (*models.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return nil, validationError("email %q is not a valid address", email)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationError("username is required")
	}

	user := &models.User{
		Email:    strings.ToLower(addr.Address),
		Username: username,
		IsActive: true,
		IsAdmin:  isAdmin,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, asTransactionError(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"admin":   user.IsAdmin,
	}).Infof("User created: %s", user.Username)
	return user, nil
}

// SetUserActive enables or disables an account on behalf of actorID. An admin cannot
// deactivate their own account.
func (s *AdminService) SetUserActive(ctx context.Context, actorID, userID int64, active bool) (*models.User, error) {
	if err := checkSelfDeactivation(actorID, userID, active); err != nil {
		return nil, err
	}

	user, err := s.store.Users().SetActive(ctx, userID, active)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	s.logActiveChange(actorID, user)
	return user, nil
}

// ToggleUserActive flips an account between active and deactivated
func (s *AdminService) ToggleUserActive(ctx context.Context, actorID, userID int64) (*models.User, error) {
	var user *models.User
	err := s.store.WithTx(ctx, func(tx Store) error {
		current, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}

		active := !current.IsActive
		if err := checkSelfDeactivation(actorID, userID, active); err != nil {
			return err
		}
		user, err = tx.Users().SetActive(ctx, userID, active)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil
	})
	if err != nil {
		return nil, asTransactionError(err)
	}

	s.logActiveChange(actorID, user)
	return user, nil
}

func checkSelfDeactivation(actorID, userID int64, active bool) error {
	if actorID == userID && !active {
		return validationError("cannot deactivate own account")
	}
	return nil
}

func (s *AdminService) logActiveChange(actorID int64, user *models.User) {
	s.log.WithFields(logrus.Fields{
		"admin_id": actorID,
		"user_id":  user.ID,
	}).Infof("User active set to %t", user.IsActive)
}

// UserDetails returns an account with its bill and claim counts
func (s *AdminService) UserDetails(ctx context.Context, userID int64) (*models.UserDetails, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	total, paid, err := s.store.Bills().CountByOwner(ctx, userID)
	if err != nil {
		return nil, asTransactionError(err)
	}
	claims, err := s.store.Claims().CountByUser(ctx, userID)
	if err != nil {
		return nil, asTransactionError(err)
	}

	return &models.UserDetails{
		User:           user,
		TotalBills:     total,
		PaidBills:      paid,
		RewardsClaimed: claims,
	}, nil
}

// Stats summarizes users, bills and claims. Bills count as due when outstanding and due
// within the window, overdue ones included.
func (s *AdminService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	users, err := s.store.Users().Totals(ctx)
	if err != nil {
		return nil, asTransactionError(err)
	}
	dueBy := s.clock.today().AddDate(0, 0, s.windowDays)
	bills, err := s.store.Bills().Totals(ctx, dueBy)
	if err != nil {
		return nil, asTransactionError(err)
	}
	claims, err := s.store.Claims().Count(ctx)
	if err != nil {
		return nil, asTransactionError(err)
	}

	return &models.DashboardStats{
		TotalUsers:    users.Total,
		ActiveUsers:   users.Active,
		TotalBills:    bills.Total,
		PaidBills:     bills.Paid,
		DueBills:      bills.Due,
		DueAmount:     bills.DueAmount,
		WindowDays:    s.windowDays,
		RewardsIssued: claims,
		TotalPoints:   users.TotalPoints,
	}, nil
}
