package models_test

import (
	"testing"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTotals(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "7.5")
	t.Setenv("TAX_RATE_PERCENT", "8")

	items := []models.OrderItem{
		{UnitPrice: dec("4.50"), Quantity: 2, LineTotal: dec("9.00")},
		{UnitPrice: dec("6.50"), Quantity: 2, LineTotal: dec("13.00")},
	}
	totals := models.ComputeTotals(items, dec("7.50"), decimal.Zero)

	if !totals.Subtotal.Equal(dec("22.00")) {
		t.Fatalf("subtotal: expected 22.00, got %s", totals.Subtotal)
	}
	if !totals.PlatformFee.Equal(dec("1.65")) {
		t.Fatalf("platform fee: expected 1.65, got %s", totals.PlatformFee)
	}
	if !totals.Tax.Equal(dec("1.76")) {
		t.Fatalf("tax: expected 1.76, got %s", totals.Tax)
	}
	if !totals.Total.Equal(dec("32.91")) {
		t.Fatalf("total: expected 32.91, got %s", totals.Total)
	}

	// the identity always holds regardless of rates
	recomputed := totals.Subtotal.Add(totals.ShippingFee).Add(totals.PlatformFee).Add(totals.Tax).Sub(totals.Discount)
	if !totals.Total.Equal(recomputed) {
		t.Fatalf("total %s does not equal its components %s", totals.Total, recomputed)
	}
}

func TestComputeTotalsDiscountReducesTotalOnly(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "7.5")
	t.Setenv("TAX_RATE_PERCENT", "8")

	items := []models.OrderItem{{UnitPrice: dec("10.00"), Quantity: 1, LineTotal: dec("10.00")}}
	totals := models.ComputeTotals(items, decimal.Zero, dec("2.00"))

	if !totals.Discount.Equal(dec("2.00")) {
		t.Fatalf("discount: expected 2.00, got %s", totals.Discount)
	}
	expected := dec("10.00").Add(totals.PlatformFee).Add(totals.Tax).Sub(dec("2.00"))
	if !totals.Total.Equal(expected) {
		t.Fatalf("total: expected %s, got %s", expected, totals.Total)
	}
}

func TestValidateTotals(t *testing.T) {
	order := &models.Order{
		Subtotal:    dec("22.00"),
		ShippingFee: dec("7.50"),
		PlatformFee: dec("1.65"),
		Tax:         dec("1.80"),
		Discount:    dec("0.00"),
		Total:       dec("32.95"),
		Items: []models.OrderItem{
			{ProductId: 1, UnitPrice: dec("4.50"), Quantity: 2, LineTotal: dec("9.00")},
			{ProductId: 2, UnitPrice: dec("6.50"), Quantity: 2, LineTotal: dec("13.00")},
		},
	}
	if err := models.ValidateTotals(order); err != nil {
		t.Fatalf("expected valid totals, got %v", err)
	}

	broken := *order
	broken.Total = dec("32.96")
	if err := models.ValidateTotals(&broken); err == nil {
		t.Fatalf("expected total mismatch to be rejected")
	}

	badLine := *order
	badLine.Items = []models.OrderItem{
		{ProductId: 1, UnitPrice: dec("4.50"), Quantity: 2, LineTotal: dec("9.50")},
		{ProductId: 2, UnitPrice: dec("6.50"), Quantity: 2, LineTotal: dec("13.00")},
	}
	if err := models.ValidateTotals(&badLine); err == nil {
		t.Fatalf("expected line total mismatch to be rejected")
	}

	badSubtotal := *order
	badSubtotal.Subtotal = dec("21.00")
	if err := models.ValidateTotals(&badSubtotal); err == nil {
		t.Fatalf("expected subtotal mismatch to be rejected")
	}
}
