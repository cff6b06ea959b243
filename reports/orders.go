package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// BuildOrderSummaryReport renders orders placed in [from, to) with
// their money breakdown plus a totals row.
func BuildOrderSummaryReport(db *gorm.DB, ctx context.Context, from, to time.Time) (*excelize.File, error) {
	var orders []models.Order
	err := db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Orders"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Order Number", "Placed At", "Status", "Subtotal", "Shipping", "Platform Fee", "Tax", "Discount", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	sum := models.OrderTotals{
		Subtotal:    decimal.Zero,
		ShippingFee: decimal.Zero,
		PlatformFee: decimal.Zero,
		Tax:         decimal.Zero,
		Discount:    decimal.Zero,
		Total:       decimal.Zero,
	}
	for row, order := range orders {
		values := []interface{}{
			order.OrderNumber,
			order.CreatedAt.Format("2006-01-02 15:04"),
			string(order.Status),
			order.Subtotal.StringFixed(2),
			order.ShippingFee.StringFixed(2),
			order.PlatformFee.StringFixed(2),
			order.Tax.StringFixed(2),
			order.Discount.StringFixed(2),
			order.Total.StringFixed(2),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
		sum.Subtotal = sum.Subtotal.Add(order.Subtotal)
		sum.ShippingFee = sum.ShippingFee.Add(order.ShippingFee)
		sum.PlatformFee = sum.PlatformFee.Add(order.PlatformFee)
		sum.Tax = sum.Tax.Add(order.Tax)
		sum.Discount = sum.Discount.Add(order.Discount)
		sum.Total = sum.Total.Add(order.Total)
	}

	totalRow := len(orders) + 2
	totals := []interface{}{
		"TOTAL", "", "",
		sum.Subtotal.StringFixed(2),
		sum.ShippingFee.StringFixed(2),
		sum.PlatformFee.StringFixed(2),
		sum.Tax.StringFixed(2),
		sum.Discount.StringFixed(2),
		sum.Total.StringFixed(2),
	}
	for col, v := range totals {
		cell, _ := excelize.CoordinatesToCellName(col+1, totalRow)
		f.SetCellValue(sheet, cell, v)
	}

	f.SetColWidth(sheet, "A", "B", 20)
	f.SetColWidth(sheet, "C", "I", 14)
	return f, nil
}

// OrderReportFilename names a download for a period.
func OrderReportFilename(from, to time.Time) string {
	return fmt.Sprintf("orders_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
}
