package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

const orderLockTimeoutSeconds = 5

// withOrderLock serializes confirmation attempts per order with a MySQL
// named lock. Duplicate payment webhooks for the same order queue up
// here; at most one PENDING to CONFIRMED transition wins and the rest
// observe the confirmed state.
//
// MySQL advisory locks are session-scoped, so GET_LOCK and RELEASE_LOCK
// must run on the same connection. The lock is pinned to a connection
// checked out of the pool for the whole critical section; fn runs
// against the normal pooled handle and commits before the lock is
// released.
func withOrderLock(db *gorm.DB, ctx context.Context, orderId int, fn func() error) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	lockName := fmt.Sprintf("order:%d", orderId)

	var acquired sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", lockName, orderLockTimeoutSeconds).
		Scan(&acquired)
	if err != nil {
		return err
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		return &utils.ConcurrencyConflictError{Resource: lockName}
	}
	defer func() {
		var released sql.NullInt64
		row := conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", lockName)
		_ = row.Scan(&released)
	}()

	return fn()
}
