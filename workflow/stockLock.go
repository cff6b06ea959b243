package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/utils"
)

const (
	stockLockTTL   = 10 * time.Second
	stockLockRetry = 50 * time.Millisecond
	stockLockWait  = 3 * time.Second
)

func stockLockKey(productId int) string {
	return fmt.Sprintf("lock:productStock:%d", productId)
}

// WithProductStockLock serializes stock check-and-append per product.
// When Redis is unavailable the lock degrades to a no-op and the row
// lock taken by the ledger write is the only serialization; helpers
// must stay correct (if looser) in that mode.
func WithProductStockLock(ctx context.Context, productId int, fn func() error) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return fn()
	}
	backoff := redislock.LimitRetry(redislock.LinearBackoff(stockLockRetry), int(stockLockWait/stockLockRetry))
	lock, err := locker.Obtain(ctx, stockLockKey(productId), stockLockTTL, &redislock.Options{
		RetryStrategy: backoff,
	})
	if err == redislock.ErrNotObtained {
		return &utils.ConcurrencyConflictError{Resource: fmt.Sprintf("product %d stock", productId)}
	}
	if err != nil {
		return err
	}
	defer lock.Release(context.Background())
	return fn()
}

// WithProductStockLocks takes the per-product locks in ascending id
// order so concurrent checkouts touching overlapping products never
// deadlock.
func WithProductStockLocks(ctx context.Context, productIds []int, fn func() error) error {
	ids := utils.UniqueSlice(productIds)
	sort.Ints(ids)

	var run func(i int) error
	run = func(i int) error {
		if i >= len(ids) {
			return fn()
		}
		return WithProductStockLock(ctx, ids[i], func() error { return run(i + 1) })
	}
	return run(0)
}
