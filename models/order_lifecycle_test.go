package models_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/farmdirect/marketplace_backend/models"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.OrderStatus
		to      models.OrderStatus
		allowed bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusPreparing, false},
		{models.OrderStatusConfirmed, models.OrderStatusPreparing, true},
		{models.OrderStatusConfirmed, models.OrderStatusInTransit, true},
		{models.OrderStatusConfirmed, models.OrderStatusReadyForPickup, true},
		{models.OrderStatusPreparing, models.OrderStatusInTransit, true},
		{models.OrderStatusPreparing, models.OrderStatusReadyForPickup, true},
		{models.OrderStatusPreparing, models.OrderStatusDelivered, false},
		{models.OrderStatusInTransit, models.OrderStatusDelivered, true},
		{models.OrderStatusInTransit, models.OrderStatusCompleted, false},
		{models.OrderStatusReadyForPickup, models.OrderStatusCompleted, true},
		{models.OrderStatusReadyForPickup, models.OrderStatusDelivered, false},

		// no going backwards
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusInTransit, models.OrderStatusPreparing, false},

		// cancel and refund are reachable from any live state
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusInTransit, models.OrderStatusRefunded, true},

		// terminal states admit nothing
		{models.OrderStatusDelivered, models.OrderStatusCompleted, false},
		{models.OrderStatusCompleted, models.OrderStatusRefunded, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
		{models.OrderStatusRefunded, models.OrderStatusCancelled, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestFulfillmentTransitionsFollowDeliveryBranch(t *testing.T) {
	cases := []struct {
		from     models.FulfillmentStatus
		to       models.FulfillmentStatus
		delivery models.DeliveryType
		allowed  bool
	}{
		// delivery branch
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusInTransit, models.DeliveryTypeLocalDelivery, true},
		{models.FulfillmentStatusInTransit, models.FulfillmentStatusDelivered, models.DeliveryTypeLocalDelivery, true},
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusInTransit, models.DeliveryTypeShipping, true},
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusDelivered, models.DeliveryTypeShipping, false},

		// pickup branch
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusReadyForPickup, models.DeliveryTypePickup, true},
		{models.FulfillmentStatusReadyForPickup, models.FulfillmentStatusCompleted, models.DeliveryTypePickup, true},
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusCompleted, models.DeliveryTypePickup, false},

		// cross-branch moves are rejected
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusReadyForPickup, models.DeliveryTypeLocalDelivery, false},
		{models.FulfillmentStatusPreparing, models.FulfillmentStatusInTransit, models.DeliveryTypePickup, false},
		{models.FulfillmentStatusInTransit, models.FulfillmentStatusCompleted, models.DeliveryTypeShipping, false},

		// terminal states admit nothing
		{models.FulfillmentStatusDelivered, models.FulfillmentStatusCompleted, models.DeliveryTypeLocalDelivery, false},
		{models.FulfillmentStatusCompleted, models.FulfillmentStatusReadyForPickup, models.DeliveryTypePickup, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to, tc.delivery); got != tc.allowed {
			t.Fatalf("%s -> %s (%s): expected %v, got %v", tc.from, tc.to, tc.delivery, tc.allowed, got)
		}
	}
}

func TestAggregateOrderStatusTakesLeastAdvancedFulfillment(t *testing.T) {
	cases := []struct {
		name     string
		statuses []models.FulfillmentStatus
		expected models.OrderStatus
	}{
		{"all preparing", []models.FulfillmentStatus{models.FulfillmentStatusPreparing, models.FulfillmentStatusPreparing}, models.OrderStatusPreparing},
		{"one dispatched", []models.FulfillmentStatus{models.FulfillmentStatusInTransit, models.FulfillmentStatusPreparing}, models.OrderStatusPreparing},
		{"mixed in flight", []models.FulfillmentStatus{models.FulfillmentStatusInTransit, models.FulfillmentStatusReadyForPickup}, models.OrderStatusInTransit},
		{"delivered and pending pickup", []models.FulfillmentStatus{models.FulfillmentStatusDelivered, models.FulfillmentStatusReadyForPickup}, models.OrderStatusReadyForPickup},
		{"all terminal", []models.FulfillmentStatus{models.FulfillmentStatusDelivered, models.FulfillmentStatusCompleted}, models.OrderStatusDelivered},
		{"single pickup done", []models.FulfillmentStatus{models.FulfillmentStatusCompleted}, models.OrderStatusCompleted},
	}
	for _, tc := range cases {
		fulfillments := make([]models.Fulfillment, 0, len(tc.statuses))
		for _, s := range tc.statuses {
			fulfillments = append(fulfillments, models.Fulfillment{Status: s})
		}
		got, ok := models.AggregateOrderStatus(fulfillments)
		if !ok {
			t.Fatalf("%s: expected a derived status", tc.name)
		}
		if got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}

	if _, ok := models.AggregateOrderStatus(nil); ok {
		t.Fatalf("expected no derived status for an order with no fulfillments")
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^FD-20260830-[0-9A-F]{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		num := models.GenerateOrderNumber(now)
		if !pattern.MatchString(num) {
			t.Fatalf("order number %q does not match %s", num, pattern)
		}
		if seen[num] {
			t.Fatalf("duplicate order number %q", num)
		}
		seen[num] = true
	}
}
