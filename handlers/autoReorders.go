package handlers

import (
	"net/http"
	"time"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func createAutoReorderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAutoReorderSetting
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		setting, err := models.CreateAutoReorderSetting(db, c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, setting)
	}
}

func listAutoReordersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := models.ListUserAutoReorders(db, c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func autoReorderStatusHandler(db *gorm.DB, action func(*gorm.DB, *gin.Context, int) (*models.AutoReorderSetting, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		setting, err := action(db, c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, setting)
	}
}

func pauseAutoReorder(db *gorm.DB, c *gin.Context, id int) (*models.AutoReorderSetting, error) {
	return models.PauseAutoReorder(db, c.Request.Context(), id)
}

func resumeAutoReorder(db *gorm.DB, c *gin.Context, id int) (*models.AutoReorderSetting, error) {
	return models.ResumeAutoReorder(db, c.Request.Context(), id)
}

func cancelAutoReorder(db *gorm.DB, c *gin.Context, id int) (*models.AutoReorderSetting, error) {
	return models.CancelAutoReorder(db, c.Request.Context(), id)
}

// runSweepHandler triggers the auto-reorder sweep, normally invoked by
// the scheduler service. Admin only.
func runSweepHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		if raw := c.Query("now"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "now must be RFC3339"})
				return
			}
			now = parsed
		}
		result, err := workflow.RunAutoReorderSweep(db, c.Request.Context(), now)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
