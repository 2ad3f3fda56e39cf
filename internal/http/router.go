// Package httpapi wires the gin transport to the notification service.
//
// Middleware order: RequestID, Logger, Recovery, body limit, Metrics, CORS.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/http/handlers"
	"github.com/ajayykmr/sms-dispatch-service/internal/http/middleware"
)

const defaultMaxBodyBytes = 1 << 20

// Options configures the router.
type Options struct {
	Service        handlers.Service
	Logger         zerolog.Logger
	ServiceName    string
	AllowedOrigins []string
	MaxBodyBytes   int64
	HealthChecks   map[string]handlers.Check
}

// NewRouter builds the gin engine with middleware, /health, /metrics and the
// /v1 API.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Recovery())
	r.Use(middleware.LimitBody(maxBody))
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.GET("/health", handlers.Health(opts.ServiceName, opts.HealthChecks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.New(opts.Service)
	v1 := r.Group("/v1")
	{
		sms := v1.Group("/sms")
		sms.POST("/send", h.SendSMS)
		sms.GET("/search", h.SearchSMS)
		sms.GET("/:id", h.GetSMS)

		bl := v1.Group("/blacklist")
		bl.POST("", h.AddToBlacklist)
		bl.DELETE("", h.RemoveFromBlacklist)
		bl.GET("", h.ListBlacklist)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
