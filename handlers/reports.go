package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/farmdirect/marketplace_backend/reports"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func inventoryReportHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "id")
		if !ok {
			return
		}
		file, err := reports.BuildInventoryReport(db, c.Request.Context(), farmId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.InventoryReportFilename(farmId)))
		c.Header("Content-Type", xlsxContentType)
		if err := file.Write(c.Writer); err != nil {
			respondError(c, err)
		}
	}
}

func orderReportHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		to := time.Now()
		from := to.AddDate(0, -1, 0)
		if raw := c.Query("from"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
				return
			}
			from = parsed
		}
		if raw := c.Query("to"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
				return
			}
			to = parsed
		}
		file, err := reports.BuildOrderSummaryReport(db, c.Request.Context(), from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.OrderReportFilename(from, to)))
		c.Header("Content-Type", xlsxContentType)
		if err := file.Write(c.Writer); err != nil {
			respondError(c, err)
		}
	}
}
