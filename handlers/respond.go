package handlers

import (
	"net/http"

	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/gin-gonic/gin"
)

// respondError maps the error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case err == utils.ErrorRecordNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsInvalidTransitionError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsInsufficientStockError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsConcurrencyConflictError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case utils.IsExternalServiceError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := utils.ParseInt(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
