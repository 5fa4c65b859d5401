package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ConnectOptions bounds connection acquisition
type ConnectOptions struct {
	MaxAttempts int
	MaxWait     time.Duration
}

// Connect opens a postgres handle and pings it, retrying with exponential backoff
// until the ping succeeds, MaxAttempts is reached or MaxWait elapses.
func Connect(ctx context.Context, dsn string, opts ConnectOptions, log *logrus.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxElapsedTime = opts.MaxWait

	var policy backoff.BackOff = expo
	if opts.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(expo, uint64(opts.MaxAttempts-1))
	}

	attempt := 0
	ping := func() error {
		attempt++
		return db.PingContext(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": wait.String(),
		}).Warnf("Database not ready: %v", err)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(policy, ctx), notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
	}

	log.Infof("Connected to database after %d attempt(s)", attempt)
	return db, nil
}
