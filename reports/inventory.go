package reports

import (
	"context"
	"fmt"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// BuildInventoryReport renders a farm's products with their ledger
// view: cached stock, running sum, and adjustment counts per type.
func BuildInventoryReport(db *gorm.DB, ctx context.Context, farmId int) (*excelize.File, error) {
	var products []models.Product
	err := db.WithContext(ctx).
		Where("farm_id = ?", farmId).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Inventory"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Product", "Unit", "Status", "Cached Stock", "Ledger Stock", "Restocks", "Sales", "Spoilage", "Corrections"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, product := range products {
		ledgerStock, err := models.CurrentStock(db, ctx, product.ID)
		if err != nil {
			return nil, err
		}
		counts, err := adjustmentCounts(db, ctx, product.ID)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			product.Name,
			product.Unit,
			string(product.Status),
			product.StockCacheQty,
			ledgerStock,
			counts[models.InventoryAdjustmentTypeRestock],
			counts[models.InventoryAdjustmentTypeSale],
			counts[models.InventoryAdjustmentTypeSpoilage],
			counts[models.InventoryAdjustmentTypeCorrection],
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 30)
	f.SetColWidth(sheet, "B", "I", 14)
	return f, nil
}

func adjustmentCounts(db *gorm.DB, ctx context.Context, productId int) (map[models.InventoryAdjustmentType]int, error) {
	type row struct {
		AdjustmentType models.InventoryAdjustmentType
		Count          int
	}
	var rows []row
	err := db.WithContext(ctx).Model(&models.InventoryAdjustment{}).
		Select("adjustment_type, COUNT(*) AS count").
		Where("product_id = ?", productId).
		Group("adjustment_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := map[models.InventoryAdjustmentType]int{}
	for _, r := range rows {
		counts[r.AdjustmentType] = r.Count
	}
	return counts, nil
}

// InventoryReportFilename names a download for a farm.
func InventoryReportFilename(farmId int) string {
	return fmt.Sprintf("inventory_farm_%d.xlsx", farmId)
}
