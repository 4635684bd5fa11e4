package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/api/handlers"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/api/middleware"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/service"
)

type Services struct {
	InsightService *service.InsightService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api/v1")

	if services != nil && services.InsightService != nil {
		insightHandler := handlers.NewInsightHandler(services.InsightService)
		insightGroup := apiGroup.Group("/insights")
		{
			insightGroup.GET("/report", insightHandler.GetReport)
			insightGroup.GET("/forecast", insightHandler.GetForecast)
			insightGroup.GET("/anomalies", insightHandler.GetAnomalies)
			insightGroup.GET("/segments", insightHandler.GetSegments)
			insightGroup.GET("/recommendations/:entity", insightHandler.GetRecommendations)
			insightGroup.GET("/replenishment", insightHandler.GetReplenishment)
			insightGroup.GET("/abc", insightHandler.GetABC)
			insightGroup.GET("/periods", insightHandler.GetPeriods)
			insightGroup.POST("/refresh", insightHandler.Refresh)
		}

		computeHandler := handlers.NewComputeHandler(services.InsightService.Defaults())
		computeGroup := apiGroup.Group("/compute")
		{
			computeGroup.POST("/forecast", computeHandler.Forecast)
			computeGroup.POST("/anomalies", computeHandler.Anomalies)
			computeGroup.POST("/segments", computeHandler.Segments)
			computeGroup.POST("/recommendations", computeHandler.Recommendations)
			computeGroup.POST("/replenishment", computeHandler.Replenishment)
			computeGroup.POST("/abc", computeHandler.ABC)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
