package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// Message is a direct message between a consumer and a farmer,
// optionally tied to an order.
type Message struct {
	ID          int        `gorm:"primary_key" json:"id"`
	SenderId    int        `gorm:"index;not null" json:"sender_id"`
	RecipientId int        `gorm:"index;not null" json:"recipient_id"`
	FarmId      *int       `gorm:"index" json:"farm_id"`
	OrderId     *int       `gorm:"index" json:"order_id"`
	Subject     string     `gorm:"size:255" json:"subject"`
	Body        string     `gorm:"size:2000;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type NewMessage struct {
	RecipientId int    `json:"recipient_id" binding:"required"`
	FarmId      *int   `json:"farm_id"`
	OrderId     *int   `json:"order_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body" binding:"required"`
}

// SendMessage stores the message and emits a notification event for
// the recipient in the same transaction.
func SendMessage(db *gorm.DB, ctx context.Context, input *NewMessage) (*Message, error) {
	senderId := utils.GetUserId(ctx)
	if input.Body == "" {
		return nil, utils.NewValidationError("body", "message body must not be empty")
	}
	if input.RecipientId == senderId {
		return nil, utils.NewValidationError("recipient_id", "cannot message yourself")
	}
	if err := utils.ValidateResourceId[User](db, ctx, input.RecipientId); err != nil {
		return nil, err
	}

	if input.FarmId != nil {
		if err := utils.ValidateResourceId[Farm](db, ctx, *input.FarmId); err != nil {
			return nil, err
		}
	}

	message := Message{
		SenderId:    senderId,
		RecipientId: input.RecipientId,
		FarmId:      input.FarmId,
		OrderId:     input.OrderId,
		Subject:     input.Subject,
		Body:        input.Body,
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.WithContext(ctx).Create(&message).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	event := NotificationEvent{
		EventType:     NotificationTypeMessage,
		UserId:        input.RecipientId,
		AggregateType: "message",
		AggregateId:   message.ID,
		Payload: map[string]interface{}{
			"sender_id": senderId,
			"preview":   utils.Truncate(input.Body, 120),
		},
	}
	if err := EmitEventTx(tx.WithContext(ctx), &event); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListConversation returns the message thread between the current user
// and another user, oldest first.
func ListConversation(db *gorm.DB, ctx context.Context, otherUserId int, limit int) ([]*Message, error) {
	userId := utils.GetUserId(ctx)
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var messages []*Message
	err := db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userId, otherUserId, otherUserId, userId).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkConversationRead stamps all unread messages from the other user.
func MarkConversationRead(db *gorm.DB, ctx context.Context, otherUserId int) error {
	userId := utils.GetUserId(ctx)
	now := time.Now()
	return db.WithContext(ctx).Model(&Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read_at IS NULL", otherUserId, userId).
		Update("read_at", now).Error
}
