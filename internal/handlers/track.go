package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LoneMagma/pacify-site/internal/geo"
	"github.com/LoneMagma/pacify-site/internal/models"
	"github.com/LoneMagma/pacify-site/internal/store"
)

// TrackEventRequest is the payload for the public event-tracking API.
type TrackEventRequest struct {
	EventType   string  `json:"event_type" binding:"required"` // page_view / project_click / flowchart_open / ...
	PagePath    *string `json:"page_path"`
	ProjectName *string `json:"project_name"`
	Referrer    *string `json:"referrer"`
}

// TrackEventHandler accepts analytics events from the portfolio site,
// resolves the caller's location, and appends the event to the store.
func TrackEventHandler(s *store.EventStore, resolver *geo.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrackEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ip := clientIP(c.GetHeader("X-Forwarded-For"))
		country, city := resolver.Resolve(c.Request.Context(), ip)

		evt := models.Event{
			EventType:   req.EventType,
			PagePath:    req.PagePath,
			ProjectName: req.ProjectName,
			Referrer:    req.Referrer,
			Country:     country,
			City:        city,
		}
		if err := s.Append(c.Request.Context(), &evt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "tracked"})
	}
}

// clientIP takes the first address from a forwarded-for header, falling back
// to loopback when the service is not behind a proxy.
func clientIP(forwardedFor string) string {
	if forwardedFor == "" {
		return "127.0.0.1"
	}
	if idx := strings.Index(forwardedFor, ","); idx >= 0 {
		forwardedFor = forwardedFor[:idx]
	}
	return strings.TrimSpace(forwardedFor)
}
