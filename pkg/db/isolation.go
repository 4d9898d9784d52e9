package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const defaultRetryBase = 50 * time.Millisecond

// TxOptions bounds a transaction that must not interleave with concurrent writers.
type TxOptions struct {
	Isolation sql.IsolationLevel
	// MaxWait caps how long a statement waits for row locks (postgres only).
	MaxWait time.Duration
	// Timeout caps the whole transaction, lock waits included.
	Timeout    time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
}

// WithIsolatedTx runs fn in a transaction at opts.Isolation, retrying the
// whole unit on serialization failures and deadlocks. fn may run more than
// once and must not leak state between attempts.
func (c *Client) WithIsolatedTx(ctx context.Context, opts TxOptions, fn func(tx *gorm.DB) error) error {
	base := opts.RetryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewExponential(base))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.runIsolated(ctx, opts, fn)
		if IsSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) runIsolated(ctx context.Context, opts TxOptions, fn func(tx *gorm.DB) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	tx := c.conn.WithContext(ctx).Begin(&sql.TxOptions{Isolation: opts.Isolation})
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if opts.MaxWait > 0 && tx.Dialector.Name() == "postgres" {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", opts.MaxWait.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
