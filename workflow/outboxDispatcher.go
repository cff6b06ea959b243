package workflow

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// EventSink delivers one outbox record to a downstream channel.
// Delivery is at-least-once; sinks must tolerate duplicates.
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, record *models.NotificationEventRecord) error
}

// InAppSink turns events into in-app notification inbox rows.
type InAppSink struct {
	DB *gorm.DB
}

func (s *InAppSink) Name() string { return "inApp" }

func (s *InAppSink) Deliver(ctx context.Context, record *models.NotificationEventRecord) error {
	notification := models.Notification{
		UserId:  record.UserId,
		Type:    record.EventType,
		Title:   notificationTitle(record.EventType),
		Payload: record.Payload,
	}
	return s.DB.WithContext(ctx).Create(&notification).Error
}

func notificationTitle(eventType models.NotificationType) string {
	switch eventType {
	case models.NotificationTypeOrderUpdate:
		return "Your order was updated"
	case models.NotificationTypeFulfillmentUpdate:
		return "Delivery status changed"
	case models.NotificationTypeReorderReminder:
		return "Your recurring order fires soon"
	case models.NotificationTypeMessage:
		return "New message"
	}
	return "Notification"
}

// PubSubSink publishes events to the configured Pub/Sub topic for
// external relays (email, SMS, push).
type PubSubSink struct {
	Topic *pubsub.Topic
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, record *models.NotificationEventRecord) error {
	payload, err := utils.MarshalToJSON(record)
	if err != nil {
		return err
	}
	result := s.Topic.Publish(ctx, &pubsub.Message{
		Data: []byte(payload),
		Attributes: map[string]string{
			"eventType": string(record.EventType),
			"userId":    fmt.Sprintf("%d", record.UserId),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return &utils.ExternalServiceError{Service: "pubsub", Err: err}
	}
	return nil
}

// OutboxDispatcher drains the notification outbox. Rows are claimed
// with SKIP LOCKED so several replicas can run it; failures back off
// exponentially and park as DEAD after MaxAttempts.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Sinks        []EventSink
	Interval     time.Duration
	BatchSize    int
	MaxAttempts  int
	StuckTimeout time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, sinks ...EventSink) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:           db,
		Sinks:        sinks,
		Interval:     5 * time.Second,
		BatchSize:    50,
		MaxAttempts:  8,
		StuckTimeout: 5 * time.Minute,
	}
}

// Run loops until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	logger := config.GetLogger()
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.ProcessBatch(ctx); err != nil {
				config.LogError(logger, "workflow", "OutboxDispatcher.Run", "batch failed", nil, err)
			}
		}
	}
}

// ProcessBatch claims one batch and delivers it. Returns the number of
// records successfully delivered to every sink.
func (d *OutboxDispatcher) ProcessBatch(ctx context.Context) (int, error) {
	now := time.Now()

	if _, err := models.RequeueStuckEvents(d.DB, ctx, now.Add(-d.StuckTimeout)); err != nil {
		return 0, err
	}

	tx := d.DB.Begin()
	records, err := models.ClaimPendingEvents(tx, ctx, d.BatchSize, now)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	delivered := 0
	for _, record := range records {
		if err := d.deliver(ctx, record); err != nil {
			backoff := backoffDelay(record.AttemptCount + 1)
			if markErr := models.MarkEventFailed(d.DB, ctx, record, err, now.Add(backoff), d.MaxAttempts); markErr != nil {
				return delivered, markErr
			}
			continue
		}
		if err := models.MarkEventPublished(d.DB, ctx, record.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, record *models.NotificationEventRecord) error {
	for _, sink := range d.Sinks {
		if err := sink.Deliver(ctx, record); err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}
	return nil
}

// backoffDelay grows 10s, 20s, 40s... capped at 10 minutes.
func backoffDelay(attempt int) time.Duration {
	delay := 10 * time.Second
	for i := 1; i < attempt && delay < 10*time.Minute; i++ {
		delay *= 2
	}
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}
