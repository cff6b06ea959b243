package models_test

import (
	"testing"

	"github.com/farmdirect/marketplace_backend/models"
)

func TestValidateAdjustmentSignRules(t *testing.T) {
	cases := []struct {
		adjType models.InventoryAdjustmentType
		delta   int
		valid   bool
	}{
		{models.InventoryAdjustmentTypeRestock, 150, true},
		{models.InventoryAdjustmentTypeRestock, -5, false},
		{models.InventoryAdjustmentTypeSale, -3, true},
		{models.InventoryAdjustmentTypeSale, 3, false},
		{models.InventoryAdjustmentTypeSpoilage, -10, true},
		{models.InventoryAdjustmentTypeSpoilage, 10, false},
		{models.InventoryAdjustmentTypeCorrection, 7, true},
		{models.InventoryAdjustmentTypeCorrection, -7, true},

		// zero deltas are meaningless ledger rows
		{models.InventoryAdjustmentTypeRestock, 0, false},
		{models.InventoryAdjustmentTypeSale, 0, false},
		{models.InventoryAdjustmentTypeSpoilage, 0, false},
		{models.InventoryAdjustmentTypeCorrection, 0, false},

		{models.InventoryAdjustmentType("BOGUS"), 1, false},
	}
	for _, tc := range cases {
		err := models.ValidateAdjustment(tc.adjType, tc.delta)
		if tc.valid && err != nil {
			t.Fatalf("%s delta %d: expected valid, got %v", tc.adjType, tc.delta, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("%s delta %d: expected rejection", tc.adjType, tc.delta)
		}
	}
}
