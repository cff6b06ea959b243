package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// Notification is the in-app inbox row a dispatched event lands in.
type Notification struct {
	ID        int              `gorm:"primary_key" json:"id"`
	UserId    int              `gorm:"index;not null" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Title     string           `gorm:"size:255" json:"title"`
	Body      string           `gorm:"size:1000" json:"body"`
	Payload   string           `gorm:"type:json" json:"payload"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// ListNotifications returns the current user's notifications, newest
// first, optionally unread only.
func ListNotifications(db *gorm.DB, ctx context.Context, unreadOnly bool, limit int) ([]*Notification, error) {
	userId := utils.GetUserId(ctx)
	query := db.WithContext(ctx).Where("user_id = ?", userId)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []*Notification
	err := query.Order("id DESC").Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead marks one of the current user's notifications
// as read. Marking an already-read notification is a no-op.
func MarkNotificationRead(db *gorm.DB, ctx context.Context, id int) error {
	userId := utils.GetUserId(ctx)
	return db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userId).
		Update("is_read", true).Error
}

// MarkAllNotificationsRead clears the current user's unread badge.
func MarkAllNotificationsRead(db *gorm.DB, ctx context.Context) error {
	userId := utils.GetUserId(ctx)
	return db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userId, false).
		Update("is_read", true).Error
}

// UnreadNotificationCount backs the badge counter.
func UnreadNotificationCount(db *gorm.DB, ctx context.Context) (int64, error) {
	userId := utils.GetUserId(ctx)
	var count int64
	err := db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userId, false).
		Count(&count).Error
	return count, err
}
