package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	db      *gorm.DB
	service string
}

func NewHealthController(db *gorm.DB, service string) *HealthController {
	return &HealthController{db: db, service: service}
}

// Health reports liveness plus whether the database answers a ping.
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := hc.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": hc.service, "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": hc.service, "database": "up"})
}
