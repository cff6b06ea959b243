package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// NotificationEventRecord is a transactional outbox row. State
// transitions append exactly one record inside the same transaction as
// the mutation, so an event exists if and only if the transition
// committed. A dispatcher drains the table and delivers at least once.
type NotificationEventRecord struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	EventType     NotificationType    `gorm:"size:32;not null" json:"event_type"`
	UserId        int                 `gorm:"index;not null" json:"user_id"`
	AggregateType string              `gorm:"size:32" json:"aggregate_type"`
	AggregateId   int                 `gorm:"index" json:"aggregate_id"`
	Payload       string              `gorm:"type:json" json:"payload"`
	PublishStatus OutboxPublishStatus `gorm:"size:16;index;default:'PENDING'" json:"publish_status"`
	AttemptCount  int                 `gorm:"default:0" json:"attempt_count"`
	NextAttemptAt time.Time           `gorm:"index" json:"next_attempt_at"`
	LastError     string              `gorm:"size:500" json:"last_error"`
	PublishedAt   *time.Time          `json:"published_at"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// NotificationEvent is the payload shape handed to sinks.
type NotificationEvent struct {
	EventType     NotificationType `json:"event_type"`
	UserId        int              `json:"user_id"`
	AggregateType string           `json:"aggregate_type"`
	AggregateId   int              `json:"aggregate_id"`
	Payload       interface{}      `json:"payload"`
}

// EmitEventTx appends one outbox record in the caller's transaction.
func EmitEventTx(tx *gorm.DB, event *NotificationEvent) error {
	payload, err := utils.MarshalToJSON(event.Payload)
	if err != nil {
		return err
	}
	record := NotificationEventRecord{
		EventType:     event.EventType,
		UserId:        event.UserId,
		AggregateType: event.AggregateType,
		AggregateId:   event.AggregateId,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		NextAttemptAt: time.Now(),
	}
	return tx.Create(&record).Error
}

// ClaimPendingEvents selects up to limit due PENDING/FAILED records
// with FOR UPDATE SKIP LOCKED and flips them to PROCESSING, so
// concurrent dispatchers never grab the same rows. Must run inside a
// transaction.
func ClaimPendingEvents(tx *gorm.DB, ctx context.Context, limit int, now time.Time) ([]*NotificationEventRecord, error) {
	var records []*NotificationEventRecord
	err := tx.WithContext(ctx).
		Clauses(skipLockedClause()).
		Where("publish_status IN ? AND next_attempt_at <= ?",
			[]OutboxPublishStatus{OutboxPublishStatusPending, OutboxPublishStatusFailed}, now).
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}
	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	err = tx.WithContext(ctx).Model(&NotificationEventRecord{}).
		Where("id IN ?", ids).
		Update("publish_status", OutboxPublishStatusProcessing).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MarkEventPublished finalizes a delivered record.
func MarkEventPublished(db *gorm.DB, ctx context.Context, id int) error {
	now := time.Now()
	return db.WithContext(ctx).Model(&NotificationEventRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"publish_status": OutboxPublishStatusPublished,
			"published_at":   now,
		}).Error
}

// MarkEventFailed schedules a retry at nextAttempt, or parks the record
// as DEAD once attempts are exhausted.
func MarkEventFailed(db *gorm.DB, ctx context.Context, record *NotificationEventRecord, failure error, nextAttempt time.Time, maxAttempts int) error {
	attempts := record.AttemptCount + 1
	status := OutboxPublishStatusFailed
	if attempts >= maxAttempts {
		status = OutboxPublishStatusDead
	}
	message := ""
	if failure != nil {
		message = failure.Error()
		if len(message) > 500 {
			message = message[:500]
		}
	}
	return db.WithContext(ctx).Model(&NotificationEventRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"publish_status":  status,
			"attempt_count":   attempts,
			"next_attempt_at": nextAttempt,
			"last_error":      message,
		}).Error
}

// RequeueStuckEvents returns PROCESSING rows older than the cutoff to
// FAILED so a crashed dispatcher's claims are retried.
func RequeueStuckEvents(db *gorm.DB, ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&NotificationEventRecord{}).
		Where("publish_status = ? AND updated_at < ?", OutboxPublishStatusProcessing, cutoff).
		Update("publish_status", OutboxPublishStatusFailed)
	return result.RowsAffected, result.Error
}
