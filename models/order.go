package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is one consumer purchase. It may span several farms; physical
// completion is tracked per farm by Fulfillment rows. Pricing and the
// delivery address are snapshotted at placement so later edits to the
// product catalog or the user's profile never rewrite order history.
type Order struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	OrderNumber     string              `gorm:"size:32;uniqueIndex;not null" json:"order_number"`
	ConsumerId      int                 `gorm:"index;not null" json:"consumer_id"`
	Consumer        *User               `gorm:"foreignKey:ConsumerId" json:"consumer,omitempty"`
	Status          OrderStatus         `gorm:"type:enum('PENDING','CONFIRMED','PREPARING','IN_TRANSIT','READY_FOR_PICKUP','DELIVERED','COMPLETED','CANCELLED','REFUNDED');default:'PENDING'" json:"status"`
	DeliveryAddress string              `gorm:"size:500" json:"delivery_address"`
	DeliveryDate    *time.Time          `json:"delivery_date"`
	Subtotal        decimal.Decimal     `gorm:"type:decimal(20,4)" json:"subtotal"`
	ShippingFee     decimal.Decimal     `gorm:"type:decimal(20,4)" json:"shipping_fee"`
	PlatformFee     decimal.Decimal     `gorm:"type:decimal(20,4)" json:"platform_fee"`
	Tax             decimal.Decimal     `gorm:"type:decimal(20,4)" json:"tax"`
	Discount        decimal.Decimal     `gorm:"type:decimal(20,4)" json:"discount"`
	Total           decimal.Decimal     `gorm:"type:decimal(20,4)" json:"total"`
	Note            string              `gorm:"size:500" json:"note"`
	Items           []OrderItem         `gorm:"foreignKey:OrderId" json:"items"`
	Fulfillments    []Fulfillment       `gorm:"foreignKey:OrderId" json:"fulfillments,omitempty"`
	StatusChanges   []OrderStatusChange `gorm:"foreignKey:OrderId" json:"status_changes,omitempty"`
	Payments        []Payment           `gorm:"foreignKey:OrderId" json:"payments,omitempty"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem fixes product, farm, delivery option, unit price and lead
// time at placement. Immutable after creation.
type OrderItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	OrderId          int             `gorm:"index;not null" json:"order_id"`
	ProductId        int             `gorm:"index;not null" json:"product_id"`
	Product          *Product        `json:"product,omitempty"`
	FarmId           int             `gorm:"index;not null" json:"farm_id"`
	DeliveryOptionId int             `gorm:"not null" json:"delivery_option_id"`
	ProductName      string          `gorm:"size:255" json:"product_name"`
	Unit             string          `gorm:"size:32" json:"unit"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(20,4)" json:"line_total"`
	LeadTimeDays     int             `json:"lead_time_days"`
}

// OrderStatusChange is an append-only audit row recorded on every
// status transition, including the initial PENDING entry.
type OrderStatusChange struct {
	ID          int         `gorm:"primary_key" json:"id"`
	OrderId     int         `gorm:"index;not null" json:"order_id"`
	FromStatus  OrderStatus `gorm:"size:32" json:"from_status"`
	ToStatus    OrderStatus `gorm:"size:32;not null" json:"to_status"`
	ChangedById int         `json:"changed_by_id"`
	Note        string      `gorm:"size:255" json:"note"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// OrderTotals carries the computed money breakdown of an order.
type OrderTotals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	PlatformFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals derives the money breakdown from line items and the
// summed delivery fees. Platform fee and tax come off the subtotal at
// the configured rates. Pure; no database access.
func ComputeTotals(items []OrderItem, shippingFee decimal.Decimal, discount decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	platformFee := utils.PercentOf(subtotal, config.PlatformFeePercent())
	tax := utils.PercentOf(subtotal, config.TaxRatePercent())
	total := subtotal.Add(shippingFee).Add(platformFee).Add(tax).Sub(discount)
	return OrderTotals{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		PlatformFee: platformFee,
		Tax:         tax,
		Discount:    discount,
		Total:       total,
	}
}

// ValidateTotals checks the arithmetic identity
// subtotal + shipping + platform fee + tax - discount == total
// and that the subtotal matches the sum of line totals.
func ValidateTotals(order *Order) error {
	lineSum := decimal.Zero
	for _, item := range order.Items {
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.LineTotal.Equal(expected) {
			return utils.NewValidationError("items", fmt.Sprintf("line total mismatch on product %d", item.ProductId))
		}
		lineSum = lineSum.Add(item.LineTotal)
	}
	if !order.Subtotal.Equal(lineSum) {
		return utils.NewValidationError("subtotal", "subtotal does not match line items")
	}
	computed := order.Subtotal.
		Add(order.ShippingFee).
		Add(order.PlatformFee).
		Add(order.Tax).
		Sub(order.Discount)
	if !order.Total.Equal(computed) {
		return utils.NewValidationError("total", "total does not match its components")
	}
	return nil
}

// GenerateOrderNumber builds a human-readable unique order number,
// e.g. FD-20260830-7F3A2C. Order numbers are the externally visible
// identifier; internal row ids never leave the API layer alone.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("FD-%s-%s", now.Format("20060102"), suffix)
}

// CreateOrderTx inserts the order, its items and the initial status
// audit row inside the caller's transaction.
func CreateOrderTx(tx *gorm.DB, order *Order) error {
	if order.OrderNumber == "" {
		order.OrderNumber = GenerateOrderNumber(time.Now())
	}
	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	if err := tx.Create(order).Error; err != nil {
		return err
	}
	change := OrderStatusChange{
		OrderId:     order.ID,
		ToStatus:    order.Status,
		ChangedById: order.ConsumerId,
		Note:        "Order placed",
	}
	return tx.Create(&change).Error
}

// TransitionOrderStatusTx moves an order to the next status inside the
// caller's transaction, enforcing the state machine and appending the
// audit row. The order row is reloaded with FOR UPDATE so concurrent
// transitions serialize on it. A transition to the current status is a
// no-op reporting the existing state.
func TransitionOrderStatusTx(tx *gorm.DB, ctx context.Context, orderId int, next OrderStatus, note string) (*Order, error) {
	userId := utils.GetUserId(ctx)

	var order Order
	err := tx.WithContext(ctx).
		Clauses(forUpdateClause()).
		Where("id = ?", orderId).
		First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if order.Status == next {
		return &order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, &utils.InvalidTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(next),
		}
	}

	from := order.Status
	order.Status = next
	if err := tx.WithContext(ctx).Model(&Order{}).Where("id = ?", orderId).
		Update("status", next).Error; err != nil {
		return nil, err
	}
	change := OrderStatusChange{
		OrderId:     orderId,
		FromStatus:  from,
		ToStatus:    next,
		ChangedById: userId,
		Note:        note,
	}
	if err := tx.WithContext(ctx).Create(&change).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches an order with items, payments, fulfillments and the
// status audit trail.
func GetOrder(db *gorm.DB, ctx context.Context, id int) (*Order, error) {
	var order Order
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Payments").
		Preload("Fulfillments").
		Preload("StatusChanges", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_status_changes.id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber is the lookup consumers use from receipts.
func GetOrderByNumber(db *gorm.DB, ctx context.Context, orderNumber string) (*Order, error) {
	var order Order
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Fulfillments").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListConsumerOrders returns the current user's orders, newest first.
func ListConsumerOrders(db *gorm.DB, ctx context.Context, statuses []OrderStatus) ([]*Order, error) {
	userId := utils.GetUserId(ctx)
	query := db.WithContext(ctx).
		Preload("Items").
		Preload("Fulfillments").
		Where("consumer_id = ?", userId)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var orders []*Order
	if err := query.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListFarmOrders returns orders containing at least one item from the
// farm, newest first.
func ListFarmOrders(db *gorm.DB, ctx context.Context, farmId int, statuses []OrderStatus) ([]*Order, error) {
	query := db.WithContext(ctx).
		Preload("Items", "farm_id = ?", farmId).
		Preload("Fulfillments", "farm_id = ?", farmId).
		Preload("Consumer").
		Where("id IN (?)", db.Model(&OrderItem{}).Select("DISTINCT order_id").Where("farm_id = ?", farmId))
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var orders []*Order
	if err := query.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
