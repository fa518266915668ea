// Package server wires the gin HTTP surface described in spec.md §6:
// gin.New() plus Logger/Recovery/CORS middleware, a health endpoint, the
// core ingestion endpoint, and admin-key-gated diagnostics endpoints
// reporting the local LLM runtime's state (SPEC_FULL.md §6).
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/config"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/detector"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/handler"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/logrepo"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/request"
)

// NewRouter builds the complete gin.Engine for the server.
func NewRouter(cfg *config.Config, log *logrus.Logger, h *handler.Handler, rt *detector.Runtime, logs *logrepo.Repository) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", healthHandler(rt, logs))

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	router.POST("/api/logs", ingestHandler(h, log))

	admin := router.Group("/v1")
	admin.Use(adminKeyMiddleware(cfg.Admin.Key))
	{
		admin.GET("/diagnose-llm", diagnoseLLMHandler(rt))
		admin.GET("/circuit-breakers", circuitBreakersHandler(rt))
	}

	return router
}

// ingestHandler implements POST /api/logs: malformed JSON yields 422 (and no
// LogRecord); any other server-side failure to persist yields 500; a
// successfully processed request always returns 200, per spec.md §6.
func ingestHandler(h *handler.Handler, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in request.In
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if err := in.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		out, err := h.Process(c.Request.Context(), in)
		if err != nil {
			log.WithError(err).Error("request processing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func healthHandler(rt *detector.Runtime, logs *logrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if rt != nil {
			body["llm"] = rt.Health()
		}
		if logs != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := logs.Ping(ctx); err != nil {
				body["status"] = "degraded"
				body["db_error"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

func diagnoseLLMHandler(rt *detector.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rt == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "llm runtime not configured"})
			return
		}
		c.JSON(http.StatusOK, rt.Health())
	}
}

func circuitBreakersHandler(rt *detector.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rt == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "llm runtime not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"llm_detector_runtime": rt.Health()})
	}
}

// adminKeyMiddleware gates a route group behind X-Admin-Key, grounded on
// original_source/routers/settings_api.py's require_admin_key. An empty
// configured key disables the check (development default).
func adminKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-Admin-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing X-Admin-Key"})
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
