package models

import (
	"errors"
	"time"
)

type UserRole string

const (
	UserRoleConsumer UserRole = "CONSUMER"
	UserRoleFarmer   UserRole = "FARMER"
	UserRoleAdmin    UserRole = "ADMIN"
)

func ParseUserRole(str string) (UserRole, error) {
	switch str {
	case "CONSUMER":
		return UserRoleConsumer, nil
	case "FARMER":
		return UserRoleFarmer, nil
	case "ADMIN":
		return UserRoleAdmin, nil
	default:
		return "", errors.New("invalid user role")
	}
}

type DeliveryType string

const (
	DeliveryTypePickup        DeliveryType = "PICKUP"
	DeliveryTypeLocalDelivery DeliveryType = "LOCAL_DELIVERY"
	DeliveryTypeShipping      DeliveryType = "SHIPPING"
)

func ParseDeliveryType(str string) (DeliveryType, error) {
	deliveryTypes := map[string]DeliveryType{
		"PICKUP":         DeliveryTypePickup,
		"LOCAL_DELIVERY": DeliveryTypeLocalDelivery,
		"SHIPPING":       DeliveryTypeShipping,
	}
	t, ok := deliveryTypes[str]
	if !ok {
		return "", errors.New("invalid delivery type")
	}
	return t, nil
}

// IsPickup reports whether fulfillment for this delivery type ends at
// READY_FOR_PICKUP/COMPLETED rather than IN_TRANSIT/DELIVERED.
func (t DeliveryType) IsPickup() bool {
	return t == DeliveryTypePickup
}

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusInTransit      OrderStatus = "IN_TRANSIT"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
)

func ParseOrderStatus(str string) (OrderStatus, error) {
	orderStatuses := map[string]OrderStatus{
		"PENDING":          OrderStatusPending,
		"CONFIRMED":        OrderStatusConfirmed,
		"PREPARING":        OrderStatusPreparing,
		"IN_TRANSIT":       OrderStatusInTransit,
		"READY_FOR_PICKUP": OrderStatusReadyForPickup,
		"DELIVERED":        OrderStatusDelivered,
		"COMPLETED":        OrderStatusCompleted,
		"CANCELLED":        OrderStatusCancelled,
		"REFUNDED":         OrderStatusRefunded,
	}
	s, ok := orderStatuses[str]
	if !ok {
		return "", errors.New("invalid order status")
	}
	return s, nil
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// orderTransitions is the exhaustive forward table. PREPARING is
// optional: CONFIRMED may jump straight to the in-flight stage.
// CANCELLED and REFUNDED are reachable from any non-terminal state and
// handled in CanTransitionTo, not listed per-row.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusInTransit, OrderStatusReadyForPickup},
	OrderStatusPreparing:      {OrderStatusInTransit, OrderStatusReadyForPickup},
	OrderStatusInTransit:      {OrderStatusDelivered},
	OrderStatusReadyForPickup: {OrderStatusCompleted},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled || next == OrderStatusRefunded {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stage orders statuses along the fulfillment progression so the
// order's aggregate status can be taken as the minimum across its
// fulfillments. Terminal failure states do not participate.
func (s OrderStatus) Stage() int {
	switch s {
	case OrderStatusPending:
		return 0
	case OrderStatusConfirmed:
		return 1
	case OrderStatusPreparing:
		return 2
	case OrderStatusInTransit, OrderStatusReadyForPickup:
		return 3
	case OrderStatusDelivered, OrderStatusCompleted:
		return 4
	}
	return -1
}

type FulfillmentStatus string

const (
	FulfillmentStatusPreparing      FulfillmentStatus = "PREPARING"
	FulfillmentStatusInTransit      FulfillmentStatus = "IN_TRANSIT"
	FulfillmentStatusReadyForPickup FulfillmentStatus = "READY_FOR_PICKUP"
	FulfillmentStatusDelivered      FulfillmentStatus = "DELIVERED"
	FulfillmentStatusCompleted      FulfillmentStatus = "COMPLETED"
)

func ParseFulfillmentStatus(str string) (FulfillmentStatus, error) {
	fulfillmentStatuses := map[string]FulfillmentStatus{
		"PREPARING":        FulfillmentStatusPreparing,
		"IN_TRANSIT":       FulfillmentStatusInTransit,
		"READY_FOR_PICKUP": FulfillmentStatusReadyForPickup,
		"DELIVERED":        FulfillmentStatusDelivered,
		"COMPLETED":        FulfillmentStatusCompleted,
	}
	s, ok := fulfillmentStatuses[str]
	if !ok {
		return "", errors.New("invalid fulfillment status")
	}
	return s, nil
}

func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentStatusDelivered || s == FulfillmentStatusCompleted
}

// CanTransitionTo enforces the per-branch sequence: the delivery branch
// is PREPARING -> IN_TRANSIT -> DELIVERED; the pickup branch is
// PREPARING -> READY_FOR_PICKUP -> COMPLETED. The branch is fixed by
// the fulfillment's delivery type.
func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus, deliveryType DeliveryType) bool {
	if s.IsTerminal() {
		return false
	}
	if deliveryType.IsPickup() {
		switch s {
		case FulfillmentStatusPreparing:
			return next == FulfillmentStatusReadyForPickup
		case FulfillmentStatusReadyForPickup:
			return next == FulfillmentStatusCompleted
		}
		return false
	}
	switch s {
	case FulfillmentStatusPreparing:
		return next == FulfillmentStatusInTransit
	case FulfillmentStatusInTransit:
		return next == FulfillmentStatusDelivered
	}
	return false
}

// OrderStage maps a fulfillment status onto the owning order's stage
// scale (see OrderStatus.Stage).
func (s FulfillmentStatus) OrderStage() int {
	switch s {
	case FulfillmentStatusPreparing:
		return 2
	case FulfillmentStatusInTransit, FulfillmentStatusReadyForPickup:
		return 3
	case FulfillmentStatusDelivered, FulfillmentStatusCompleted:
		return 4
	}
	return -1
}

// OrderStatusAt is the order status a fulfillment at this status maps
// to, given the fulfillment's delivery type.
func (s FulfillmentStatus) OrderStatusAt() OrderStatus {
	switch s {
	case FulfillmentStatusPreparing:
		return OrderStatusPreparing
	case FulfillmentStatusInTransit:
		return OrderStatusInTransit
	case FulfillmentStatusReadyForPickup:
		return OrderStatusReadyForPickup
	case FulfillmentStatusDelivered:
		return OrderStatusDelivered
	case FulfillmentStatusCompleted:
		return OrderStatusCompleted
	}
	return OrderStatusPreparing
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

func ParsePaymentStatus(str string) (PaymentStatus, error) {
	paymentStatuses := map[string]PaymentStatus{
		"PENDING":   PaymentStatusPending,
		"SUCCEEDED": PaymentStatusSucceeded,
		"FAILED":    PaymentStatusFailed,
		"REFUNDED":  PaymentStatusRefunded,
	}
	s, ok := paymentStatuses[str]
	if !ok {
		return "", errors.New("invalid payment status")
	}
	return s, nil
}

type InventoryAdjustmentType string

const (
	InventoryAdjustmentTypeRestock    InventoryAdjustmentType = "RESTOCK"
	InventoryAdjustmentTypeSale       InventoryAdjustmentType = "SALE"
	InventoryAdjustmentTypeCorrection InventoryAdjustmentType = "CORRECTION"
	InventoryAdjustmentTypeSpoilage   InventoryAdjustmentType = "SPOILAGE"
)

func ParseInventoryAdjustmentType(str string) (InventoryAdjustmentType, error) {
	adjustmentTypes := map[string]InventoryAdjustmentType{
		"RESTOCK":    InventoryAdjustmentTypeRestock,
		"SALE":       InventoryAdjustmentTypeSale,
		"CORRECTION": InventoryAdjustmentTypeCorrection,
		"SPOILAGE":   InventoryAdjustmentTypeSpoilage,
	}
	t, ok := adjustmentTypes[str]
	if !ok {
		return "", errors.New("invalid inventory adjustment type")
	}
	return t, nil
}

type Frequency string

const (
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

func ParseFrequency(str string) (Frequency, error) {
	frequencies := map[string]Frequency{
		"WEEKLY":   FrequencyWeekly,
		"BIWEEKLY": FrequencyBiweekly,
		"MONTHLY":  FrequencyMonthly,
	}
	f, ok := frequencies[str]
	if !ok {
		return "", errors.New("invalid frequency")
	}
	return f, nil
}

// NextDate advances a fire date by one frequency interval. MONTHLY uses
// calendar months via AddDate so the day-of-month is preserved where it
// exists (Go normalizes Jan 31 + 1 month to Mar 2/3, matching the
// behavior of due-date terms elsewhere in this codebase).
func (f Frequency) NextDate(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	}
	return from
}

type AutoReorderStatus string

const (
	AutoReorderStatusActive    AutoReorderStatus = "ACTIVE"
	AutoReorderStatusPaused    AutoReorderStatus = "PAUSED"
	AutoReorderStatusCancelled AutoReorderStatus = "CANCELLED"
)

type ProductCategory string

const (
	ProductCategoryVegetables ProductCategory = "VEGETABLES"
	ProductCategoryFruits     ProductCategory = "FRUITS"
	ProductCategoryHerbs      ProductCategory = "HERBS"
	ProductCategoryEggs       ProductCategory = "EGGS"
	ProductCategoryDairy      ProductCategory = "DAIRY"
	ProductCategoryMeat       ProductCategory = "MEAT"
	ProductCategoryPantry     ProductCategory = "PANTRY"
	ProductCategoryOther      ProductCategory = "OTHER"
)

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

type FarmStatus string

const (
	FarmStatusActive        FarmStatus = "ACTIVE"
	FarmStatusPendingReview FarmStatus = "PENDING_REVIEW"
	FarmStatusSuspended     FarmStatus = "SUSPENDED"
)

type NotificationType string

const (
	NotificationTypeOrderUpdate       NotificationType = "ORDER_UPDATE"
	NotificationTypeFulfillmentUpdate NotificationType = "FULFILLMENT_UPDATE"
	NotificationTypeReorderReminder   NotificationType = "REORDER_REMINDER"
	NotificationTypeMessage           NotificationType = "MESSAGE"
)

type OutboxPublishStatus = string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusPublished  OutboxPublishStatus = "PUBLISHED"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
