package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LoneMagma/pacify-site/internal/auth"
	"github.com/LoneMagma/pacify-site/internal/geo"
	"github.com/LoneMagma/pacify-site/internal/middleware"
	"github.com/LoneMagma/pacify-site/internal/stats"
	"github.com/LoneMagma/pacify-site/internal/store"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// NewRouter assembles the full API surface on a gin engine.
func NewRouter(r *gin.Engine, s *store.EventStore, tokens *auth.TokenService, resolver *geo.Resolver, allowedOrigins []string) *gin.Engine {
	agg := stats.NewAggregator(s)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/", RootHandler(Version))
	r.GET("/health", HealthHandler())

	api := r.Group("/api")
	{
		api.POST("/auth/login", LoginHandler(s, tokens))
		api.POST("/track", TrackEventHandler(s, resolver))

		protected := api.Group("", middleware.RequireAuth(tokens))
		{
			protected.GET("/auth/verify", VerifyHandler())
			protected.GET("/analytics", AnalyticsHandler(agg))
			protected.GET("/analytics/live", LiveVisitorsHandler(agg))
		}
	}

	return r
}
