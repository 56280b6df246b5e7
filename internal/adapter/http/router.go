package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cva-pasha/covali-templates/docs"
	"github.com/cva-pasha/covali-templates/internal/adapter/http/middleware"
	"github.com/cva-pasha/covali-templates/internal/domain"
)

// requestEnvelope leaves room for the JSON fields around a maximum-size body.
const requestEnvelope = 64 << 10

type RouterDeps struct {
	TemplateHandler  *TemplateHandler
	HealthHandler    *HealthHandler
	MetricsHandler   *MetricsHandler
	WebSocketHandler *WebSocketHandler
	HTTPMetrics      *middleware.HTTPMetrics
	RateLimitRPS     int
	CORSOrigins      []string
	Logger           *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Tracing())
	r.Use(middleware.Logging(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))

	r.GET("/health", deps.HealthHandler.Liveness)
	r.GET("/health/ready", deps.HealthHandler.Readiness)

	if deps.MetricsHandler != nil {
		r.GET("/metrics", deps.MetricsHandler.Handler())
	}
	if deps.WebSocketHandler != nil {
		r.GET("/ws", deps.WebSocketHandler.Handle)
	}

	r.StaticFileFS("/swagger/openapi.yaml", "openapi.yaml", http.FS(docs.Static))
	r.GET("/swagger/", func(c *gin.Context) {
		data, _ := docs.Static.ReadFile("swagger.html")
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(deps.RateLimitRPS))
	v1.Use(middleware.BodyLimit(domain.MaxBodySize + requestEnvelope))
	{
		templates := v1.Group("/templates")
		{
			templates.POST("", deps.TemplateHandler.Create)
			templates.GET("/:id", deps.TemplateHandler.GetByID)
			templates.PUT("/:id", deps.TemplateHandler.Update)
			templates.DELETE("/:id", deps.TemplateHandler.Delete)
			templates.POST("/:id/usage", deps.TemplateHandler.IncrementUsage)
		}

		owners := v1.Group("/owners/:ownerType/:ownerId/templates")
		{
			owners.GET("", deps.TemplateHandler.ListByOwner)
			owners.GET("/most-used", deps.TemplateHandler.MostUsed)
			owners.GET("/exists", deps.TemplateHandler.Exists)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.CorrelationIDHeader},
		ExposeHeaders:    []string{middleware.CorrelationIDHeader},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
