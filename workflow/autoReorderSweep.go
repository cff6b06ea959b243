package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SweepResult summarizes one auto-reorder sweep run.
type SweepResult struct {
	Fired     int `json:"fired"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Reminders int `json:"reminders"`
}

func sweepKey(settingId int, target time.Time) string {
	return fmt.Sprintf("reorder:%d:%s", settingId, target.Format("2006-01-02"))
}

func reminderKey(settingId int, target time.Time) string {
	return fmt.Sprintf("reorderReminder:%d:%s", settingId, target.Format("2006-01-02"))
}

// RunAutoReorderSweep materializes every due auto-reorder setting and
// emits reminders for settings inside the lead window. Each setting is
// processed independently: a failure is logged and skipped, never
// aborting the batch. A per-setting idempotency key on settings-id +
// target date makes retries of the whole sweep safe.
func RunAutoReorderSweep(db *gorm.DB, ctx context.Context, now time.Time) (*SweepResult, error) {
	logger := config.GetLogger()
	result := &SweepResult{}

	due, err := models.ListDueAutoReorders(db, ctx, now)
	if err != nil {
		return nil, err
	}

	for _, setting := range due {
		fired, err := fireAutoReorder(db, ctx, setting, now)
		if err != nil {
			result.Failed++
			config.LogError(logger, "workflow", "RunAutoReorderSweep", "setting failed", map[string]interface{}{
				"setting_id": setting.ID,
			}, err)
			continue
		}
		if fired {
			result.Fired++
		} else {
			result.Skipped++
		}
	}

	reminders, err := emitReorderReminders(db, ctx, now)
	if err != nil {
		config.LogError(logger, "workflow", "RunAutoReorderSweep", "reminder pass failed", nil, err)
	}
	result.Reminders = reminders

	return result, nil
}

// fireAutoReorder materializes one setting. Returns false when another
// run already fired this setting for the same target date.
func fireAutoReorder(db *gorm.DB, ctx context.Context, setting *models.AutoReorderSetting, now time.Time) (bool, error) {
	started, key, err := models.BeginIdempotency(db, ctx, "autoReorder", sweepKey(setting.ID, setting.NextOrderDate))
	if err != nil {
		return false, err
	}
	if !started {
		return false, nil
	}

	err = materializeSetting(db, ctx, setting, now)
	if err != nil {
		if markErr := models.MarkIdempotencyFailed(db, ctx, key.ID, err); markErr != nil {
			return false, markErr
		}
		return false, err
	}
	if err := models.MarkIdempotencySucceeded(db, ctx, key.ID, "fired"); err != nil {
		return false, err
	}
	return true, nil
}

func materializeSetting(db *gorm.DB, ctx context.Context, setting *models.AutoReorderSetting, now time.Time) error {
	return WithProductStockLock(ctx, setting.ProductId, func() error {
		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		// re-read under the transaction: the consumer may have paused or
		// cancelled between listing and firing
		var current models.AutoReorderSetting
		if err := tx.WithContext(ctx).Where("id = ?", setting.ID).First(&current).Error; err != nil {
			tx.Rollback()
			return err
		}
		if current.Status != models.AutoReorderStatusActive {
			tx.Rollback()
			return nil
		}

		product, err := utils.FetchModel[models.Product](tx, ctx, current.ProductId)
		if err != nil {
			tx.Rollback()
			return err
		}
		if !product.IsSellable() {
			tx.Rollback()
			return utils.NewValidationError("product_id", "product is no longer available")
		}

		if config.AutoReorderCreatesOrders() {
			if err := materializeOrderTx(tx, ctx, &current, product); err != nil {
				tx.Rollback()
				return err
			}
		} else {
			if err := materializeCartItemTx(tx, ctx, &current, product); err != nil {
				tx.Rollback()
				return err
			}
		}

		if err := models.AdvanceAutoReorderTx(tx.WithContext(ctx), &current, now); err != nil {
			tx.Rollback()
			return err
		}
		// keep the caller's copy in step for logging
		setting.NextOrderDate = current.NextOrderDate

		return tx.Commit().Error
	})
}

// materializeCartItemTx drops the recurring purchase into the
// consumer's cart at the current catalog price.
func materializeCartItemTx(tx *gorm.DB, ctx context.Context, setting *models.AutoReorderSetting, product *models.Product) error {
	var cart models.Cart
	err := tx.WithContext(ctx).Where("user_id = ?", setting.ConsumerId).First(&cart).Error
	if err == gorm.ErrRecordNotFound {
		cart = models.Cart{UserId: setting.ConsumerId}
		if err := tx.WithContext(ctx).Create(&cart).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	lineTotal := product.Price.Mul(decimal.NewFromInt(int64(setting.Quantity)))

	var item models.CartItem
	err = tx.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.ID, setting.ProductId).
		First(&item).Error
	switch err {
	case nil:
		item.Quantity += setting.Quantity
		item.UnitPrice = product.Price
		item.LineTotal = product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		return tx.WithContext(ctx).Save(&item).Error
	case gorm.ErrRecordNotFound:
		item = models.CartItem{
			CartId:           cart.ID,
			ProductId:        setting.ProductId,
			FarmId:           product.FarmId,
			DeliveryOptionId: setting.DeliveryOptionId,
			Quantity:         setting.Quantity,
			UnitPrice:        product.Price,
			LineTotal:        lineTotal,
		}
		return tx.WithContext(ctx).Create(&item).Error
	default:
		return err
	}
}

// materializeOrderTx places a single-item PENDING order directly,
// consuming stock through the ledger like an interactive checkout.
func materializeOrderTx(tx *gorm.DB, ctx context.Context, setting *models.AutoReorderSetting, product *models.Product) error {
	option, err := models.GetDeliveryOptionForFarm(tx, ctx, product.FarmId, setting.DeliveryOptionId)
	if err != nil {
		return err
	}
	var consumer models.User
	if err := tx.WithContext(ctx).Where("id = ?", setting.ConsumerId).First(&consumer).Error; err != nil {
		return err
	}

	policy := models.BackorderPolicy{Allow: config.AllowBackorders()}
	if _, err := models.RecordAdjustment(tx, ctx, &models.NewInventoryAdjustment{
		ProductId:      product.ID,
		QuantityChange: -setting.Quantity,
		AdjustmentType: models.InventoryAdjustmentTypeSale,
		CreatedById:    setting.ConsumerId,
		Note:           "Auto-reorder",
	}, policy); err != nil {
		return err
	}

	lineTotal := product.Price.Mul(decimal.NewFromInt(int64(setting.Quantity)))
	items := []models.OrderItem{{
		ProductId:        product.ID,
		FarmId:           product.FarmId,
		DeliveryOptionId: option.ID,
		ProductName:      product.Name,
		Unit:             product.Unit,
		UnitPrice:        product.Price,
		Quantity:         setting.Quantity,
		LineTotal:        lineTotal,
		LeadTimeDays:     product.LeadTimeDays,
	}}
	totals := models.ComputeTotals(items, option.Fee, decimal.Zero)

	order := models.Order{
		ConsumerId:      setting.ConsumerId,
		Status:          models.OrderStatusPending,
		DeliveryAddress: consumer.FormattedAddress(),
		Subtotal:        totals.Subtotal,
		ShippingFee:     totals.ShippingFee,
		PlatformFee:     totals.PlatformFee,
		Tax:             totals.Tax,
		Discount:        totals.Discount,
		Total:           totals.Total,
		Note:            "Auto-reorder",
		Items:           items,
	}
	if err := models.CreateOrderTx(tx.WithContext(ctx), &order); err != nil {
		return err
	}

	fulfillment := models.Fulfillment{
		OrderId:          order.ID,
		FarmId:           product.FarmId,
		DeliveryOptionId: option.ID,
		DeliveryType:     option.Type,
		Status:           models.FulfillmentStatusPreparing,
	}
	if err := tx.WithContext(ctx).Create(&fulfillment).Error; err != nil {
		return err
	}

	return models.EmitEventTx(tx.WithContext(ctx), &models.NotificationEvent{
		EventType:     models.NotificationTypeOrderUpdate,
		UserId:        setting.ConsumerId,
		AggregateType: "order",
		AggregateId:   order.ID,
		Payload: map[string]interface{}{
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"source":       "auto_reorder",
		},
	})
}

// emitReorderReminders sends one REORDER_REMINDER per setting per
// upcoming fire date, deduplicated with the same idempotency keys.
func emitReorderReminders(db *gorm.DB, ctx context.Context, now time.Time) (int, error) {
	upcoming, err := models.ListUpcomingAutoReorders(db, ctx, now, config.ReorderReminderLeadDays())
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, setting := range upcoming {
		started, key, err := models.BeginIdempotency(db, ctx, "autoReorderReminder", reminderKey(setting.ID, setting.NextOrderDate))
		if err != nil {
			return sent, err
		}
		if !started {
			continue
		}

		tx := db.Begin()
		emitErr := models.EmitEventTx(tx.WithContext(ctx), &models.NotificationEvent{
			EventType:     models.NotificationTypeReorderReminder,
			UserId:        setting.ConsumerId,
			AggregateType: "auto_reorder_setting",
			AggregateId:   setting.ID,
			Payload: map[string]interface{}{
				"product_id":      setting.ProductId,
				"quantity":        setting.Quantity,
				"next_order_date": setting.NextOrderDate.Format("2006-01-02"),
			},
		})
		if emitErr == nil {
			emitErr = tx.Commit().Error
		} else {
			tx.Rollback()
		}
		if emitErr != nil {
			if markErr := models.MarkIdempotencyFailed(db, ctx, key.ID, emitErr); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := models.MarkIdempotencySucceeded(db, ctx, key.ID, "sent"); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
