package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// IdempotencyKey guards at-least-once jobs against double execution.
// The unique key column makes the first INSERT win; a concurrent or
// retried run sees the duplicate-key error and reads the prior state.
type IdempotencyKey struct {
	ID        int               `gorm:"primary_key" json:"id"`
	KeyName   string            `gorm:"size:128;uniqueIndex;not null" json:"key_name"`
	Scope     string            `gorm:"size:32" json:"scope"`
	Status    IdempotencyStatus `gorm:"size:16;default:'STARTED'" json:"status"`
	Result    string            `gorm:"size:500" json:"result"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

const mysqlDuplicateEntry = 1062

// IsDuplicateKeyError reports whether err is a MySQL duplicate-entry
// violation (error 1062).
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// BeginIdempotency claims a key. The first caller gets started=true
// and owns the work; later callers get started=false plus the existing
// record so they can report the prior outcome. A FAILED record is
// reclaimed so retries can run the work again.
func BeginIdempotency(db *gorm.DB, ctx context.Context, scope, key string) (started bool, existing *IdempotencyKey, err error) {
	record := IdempotencyKey{
		KeyName: key,
		Scope:   scope,
		Status:  IdempotencyStatusStarted,
	}
	err = db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return true, &record, nil
	}
	if !IsDuplicateKeyError(err) {
		return false, nil, err
	}

	var prior IdempotencyKey
	if err := db.WithContext(ctx).Where("key_name = ?", key).First(&prior).Error; err != nil {
		return false, nil, err
	}
	if prior.Status == IdempotencyStatusFailed {
		result := db.WithContext(ctx).Model(&IdempotencyKey{}).
			Where("id = ? AND status = ?", prior.ID, IdempotencyStatusFailed).
			Update("status", IdempotencyStatusStarted)
		if result.Error != nil {
			return false, nil, result.Error
		}
		if result.RowsAffected == 1 {
			prior.Status = IdempotencyStatusStarted
			return true, &prior, nil
		}
	}
	return false, &prior, nil
}

func MarkIdempotencySucceeded(db *gorm.DB, ctx context.Context, id int, result string) error {
	if len(result) > 500 {
		result = result[:500]
	}
	return db.WithContext(ctx).Model(&IdempotencyKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": IdempotencyStatusSucceeded,
			"result": result,
		}).Error
}

func MarkIdempotencyFailed(db *gorm.DB, ctx context.Context, id int, failure error) error {
	message := ""
	if failure != nil {
		message = failure.Error()
		if len(message) > 500 {
			message = message[:500]
		}
	}
	return db.WithContext(ctx).Model(&IdempotencyKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": IdempotencyStatusFailed,
			"result": message,
		}).Error
}
