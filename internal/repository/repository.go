package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Dan9191/payzen/internal/database"
	"github.com/Dan9191/payzen/internal/service"
)

// queryable is satisfied by both *sql.DB and *sql.Tx
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides database operations, either directly on the pool or bound to a transaction
type Store struct {
	db      *sql.DB
	users   *UserRepository
	bills   *BillRepository
	rewards *RewardRepository
	claims  *RewardClaimRepository
}

// NewStore initializes a new store backed by the connection pool
func NewStore(db *sql.DB) *Store {
	return newStore(db, db)
}

func newStore(db *sql.DB, q queryable) *Store {
	return &Store{
		db:      db,
		users:   &UserRepository{q: q},
		bills:   &BillRepository{q: q},
		rewards: &RewardRepository{q: q},
		claims:  &RewardClaimRepository{q: q},
	}
}

func (s *Store) Users() service.UserRepository { return s.users }
func (s *Store) Bills() service.BillRepository { return s.bills }
func (s *Store) Rewards() service.RewardRepository { return s.rewards }
func (s *Store) Claims() service.RewardClaimRepository { return s.claims }

// WithTx runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx service.Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(newStore(s.db, tx))
	})
}

// dateOnly drops the time component the driver attaches to DATE columns
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
