package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AllowBackorders relaxes the stock policy: SALE adjustments that would
// drive projected stock negative are accepted instead of rejected.
//
// Set via env:
// - ALLOW_BACKORDERS=true
func AllowBackorders() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_BACKORDERS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// PlatformFeePercent is the marketplace-retained percentage of the order
// subtotal, applied at checkout.
//
// Set via env:
// - PLATFORM_FEE_PERCENT (default 7.5)
func PlatformFeePercent() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("PLATFORM_FEE_PERCENT"))
	if raw == "" {
		return decimal.NewFromFloat(7.5)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NewFromFloat(7.5)
	}
	return d
}

// TaxRatePercent is the flat sales-tax percentage applied to the order
// subtotal net of discount.
//
// Set via env:
// - TAX_RATE_PERCENT (default 8.0)
func TaxRatePercent() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("TAX_RATE_PERCENT"))
	if raw == "" {
		return decimal.NewFromFloat(8.0)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NewFromFloat(8.0)
	}
	return d
}

// ReorderReminderLeadDays controls how many days before nextOrderDate the
// sweep emits a REORDER_REMINDER event.
//
// Set via env:
// - REORDER_REMINDER_LEAD_DAYS (default 2)
func ReorderReminderLeadDays() int {
	raw := strings.TrimSpace(os.Getenv("REORDER_REMINDER_LEAD_DAYS"))
	if raw == "" {
		return 2
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 2
	}
	return n
}

// AutoReorderCreatesOrders switches the sweep between materializing cart
// items (default) and placing orders directly.
//
// Set via env:
// - AUTO_REORDER_CREATES_ORDERS=true
func AutoReorderCreatesOrders() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AUTO_REORDER_CREATES_ORDERS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
