package api

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/api/handlers"
	"github.com/RyanBlaney/sonido-harmony/config"
	"github.com/RyanBlaney/sonido-harmony/fingerprint"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// RequestIDHeader carries the request identifier in and out
const RequestIDHeader = "X-Request-ID"

// SetupRouter builds the HTTP surface over one shared analyzer
func SetupRouter(cfg *config.Config, version string) (*gin.Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	analyzerConfig, err := cfg.AnalyzerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer config: %w", err)
	}
	analyzer := analysis.NewAnalyzer(analyzerConfig)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestTracking())

	healthHandler := handlers.NewHealthHandler(version)
	router.GET("/health", healthHandler.HealthCheck)

	analyzeHandler := handlers.NewAnalyzeHandler(
		analyzer,
		analysis.NewBatchProcessor(analyzer, cfg.Workers),
		fingerprint.NewFingerprintComparator(cfg.ComparisonConfig()),
		cfg.MaxBatchSongs,
	)

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", analyzeHandler.Analyze)
		v1.POST("/analyze/batch", analyzeHandler.AnalyzeBatch)
		v1.POST("/compare", analyzeHandler.Compare)
	}

	return router, nil
}

// RequestTracking tags each request with an ID, attaches it to the request
// context for downstream loggers and logs the outcome
func RequestTracking() gin.HandlerFunc {
	logger := logging.WithFields(logging.Fields{
		"component": "http",
	})

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := logging.ContextWithFields(c.Request.Context(), logging.Fields{
			"request_id": requestID,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		fields := logging.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		requestLogger := logger.WithContext(ctx)
		if c.Writer.Status() >= 500 {
			requestLogger.Warn("Request failed", fields)
		} else {
			requestLogger.Debug("Request completed", fields)
		}
	}
}
