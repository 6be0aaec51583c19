package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LoneMagma/pacify-site/internal/stats"
)

// AnalyticsHandler serves the full dashboard payload. The auth middleware
// has already gated access; this handler only computes and shapes.
func AnalyticsHandler(agg *stats.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := agg.Dashboard(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analytics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// LiveVisitorsHandler serves the live-visitor estimate for the dashboard
// header indicator.
func LiveVisitorsHandler(agg *stats.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		live, err := agg.LiveVisitors(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load live count"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"live_visitors": live})
	}
}

// RootHandler reports service identity and status.
func RootHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Pacify Admin API",
			"status":  "operational",
			"version": version,
		})
	}
}

// HealthHandler is the liveness probe.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
