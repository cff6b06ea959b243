package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// AutoReorderSetting is a recurring purchase definition. The sweep in
// workflow materializes a cart item (or order) each time NextOrderDate
// comes due and advances the date by the frequency interval.
type AutoReorderSetting struct {
	ID               int               `gorm:"primary_key" json:"id"`
	ConsumerId       int               `gorm:"index;not null" json:"consumer_id"`
	ProductId        int               `gorm:"index;not null" json:"product_id"`
	Product          *Product          `json:"product,omitempty"`
	DeliveryOptionId int               `gorm:"not null" json:"delivery_option_id"`
	Quantity         int               `gorm:"not null" json:"quantity"`
	Frequency        Frequency         `gorm:"type:enum('WEEKLY','BIWEEKLY','MONTHLY');not null" json:"frequency"`
	NextOrderDate    time.Time         `gorm:"index;not null" json:"next_order_date"`
	Status           AutoReorderStatus `gorm:"type:enum('ACTIVE','PAUSED','CANCELLED');default:'ACTIVE'" json:"status"`
	LastFiredAt      *time.Time        `json:"last_fired_at"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAutoReorderSetting struct {
	ProductId        int       `json:"product_id" binding:"required"`
	DeliveryOptionId int       `json:"delivery_option_id" binding:"required"`
	Quantity         int       `json:"quantity" binding:"required"`
	Frequency        Frequency `json:"frequency" binding:"required"`
	NextOrderDate    time.Time `json:"next_order_date" binding:"required"`
}

func (input *NewAutoReorderSetting) validate(db *gorm.DB, ctx context.Context) (*Product, error) {
	if input.Quantity <= 0 {
		return nil, utils.NewValidationError("quantity", "quantity must be positive")
	}
	if _, err := ParseFrequency(string(input.Frequency)); err != nil {
		return nil, utils.NewValidationError("frequency", "invalid frequency")
	}
	product, err := utils.FetchModel[Product](db, ctx, input.ProductId)
	if err != nil {
		return nil, err
	}
	if !product.IsSellable() {
		return nil, utils.NewValidationError("product_id", "product is not available for purchase")
	}
	if _, err := GetDeliveryOptionForFarm(db, ctx, product.FarmId, input.DeliveryOptionId); err != nil {
		return nil, err
	}
	return product, nil
}

// CreateAutoReorderSetting registers a recurring purchase for the
// current user.
func CreateAutoReorderSetting(db *gorm.DB, ctx context.Context, input *NewAutoReorderSetting) (*AutoReorderSetting, error) {
	if _, err := input.validate(db, ctx); err != nil {
		return nil, err
	}
	setting := AutoReorderSetting{
		ConsumerId:       utils.GetUserId(ctx),
		ProductId:        input.ProductId,
		DeliveryOptionId: input.DeliveryOptionId,
		Quantity:         input.Quantity,
		Frequency:        input.Frequency,
		NextOrderDate:    input.NextOrderDate,
		Status:           AutoReorderStatusActive,
	}
	if err := db.WithContext(ctx).Create(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func setAutoReorderStatus(db *gorm.DB, ctx context.Context, id int, from []AutoReorderStatus, to AutoReorderStatus) (*AutoReorderSetting, error) {
	setting, err := utils.FetchModel[AutoReorderSetting](db, ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, s := range from {
		if setting.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, &utils.InvalidTransitionError{
			Entity: "auto_reorder_setting",
			From:   string(setting.Status),
			To:     string(to),
		}
	}
	err = db.WithContext(ctx).Model(&AutoReorderSetting{}).
		Where("id = ?", id).Update("status", to).Error
	if err != nil {
		return nil, err
	}
	setting.Status = to
	return setting, nil
}

// PauseAutoReorder takes a setting out of the sweep between ticks. A
// row mid-materialization in a running sweep finishes normally.
func PauseAutoReorder(db *gorm.DB, ctx context.Context, id int) (*AutoReorderSetting, error) {
	return setAutoReorderStatus(db, ctx, id, []AutoReorderStatus{AutoReorderStatusActive}, AutoReorderStatusPaused)
}

func ResumeAutoReorder(db *gorm.DB, ctx context.Context, id int) (*AutoReorderSetting, error) {
	return setAutoReorderStatus(db, ctx, id, []AutoReorderStatus{AutoReorderStatusPaused}, AutoReorderStatusActive)
}

func CancelAutoReorder(db *gorm.DB, ctx context.Context, id int) (*AutoReorderSetting, error) {
	return setAutoReorderStatus(db, ctx, id,
		[]AutoReorderStatus{AutoReorderStatusActive, AutoReorderStatusPaused},
		AutoReorderStatusCancelled)
}

// ListDueAutoReorders returns the active settings whose next fire date
// is at or before now.
func ListDueAutoReorders(db *gorm.DB, ctx context.Context, now time.Time) ([]*AutoReorderSetting, error) {
	var settings []*AutoReorderSetting
	err := db.WithContext(ctx).
		Preload("Product").
		Where("status = ? AND next_order_date <= ?", AutoReorderStatusActive, now).
		Order("next_order_date ASC").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// ListUpcomingAutoReorders returns the active settings firing within
// the reminder window (now, now+leadDays].
func ListUpcomingAutoReorders(db *gorm.DB, ctx context.Context, now time.Time, leadDays int) ([]*AutoReorderSetting, error) {
	until := now.AddDate(0, 0, leadDays)
	var settings []*AutoReorderSetting
	err := db.WithContext(ctx).
		Preload("Product").
		Where("status = ? AND next_order_date > ? AND next_order_date <= ?", AutoReorderStatusActive, now, until).
		Order("next_order_date ASC").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// ListUserAutoReorders returns the current user's settings, excluding
// cancelled ones.
func ListUserAutoReorders(db *gorm.DB, ctx context.Context) ([]*AutoReorderSetting, error) {
	userId := utils.GetUserId(ctx)
	var settings []*AutoReorderSetting
	err := db.WithContext(ctx).
		Preload("Product").
		Where("consumer_id = ? AND status <> ?", userId, AutoReorderStatusCancelled).
		Order("next_order_date ASC").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// AdvanceAutoReorderTx moves NextOrderDate forward one interval and
// stamps LastFiredAt inside the caller's transaction.
func AdvanceAutoReorderTx(tx *gorm.DB, setting *AutoReorderSetting, firedAt time.Time) error {
	next := setting.Frequency.NextDate(setting.NextOrderDate)
	err := tx.Model(&AutoReorderSetting{}).
		Where("id = ?", setting.ID).
		Updates(map[string]interface{}{
			"next_order_date": next,
			"last_fired_at":   firedAt,
		}).Error
	if err != nil {
		return err
	}
	setting.NextOrderDate = next
	setting.LastFiredAt = &firedAt
	return nil
}
