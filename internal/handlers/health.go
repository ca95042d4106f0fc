package handlers

import (
	"net/http"
	"time"

	"github.com/dszwed/wp-blueprints/internal/versions"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check and catalog requests
type HealthHandler struct {
	catalog *versions.Catalog
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(catalog *versions.Catalog) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		started: time.Now(),
	}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"service":   "wp-blueprints",
	})
}

// Versions lists the PHP and WordPress versions blueprints may target
func (h *HealthHandler) Versions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"php":       h.catalog.PHP.Values(),
		"wordpress": h.catalog.WordPress.Values(),
	})
}
