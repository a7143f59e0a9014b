package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/middlewares"
	"bitbucket.org/mmdatafocus/ledger_analytics/models"
	"bitbucket.org/mmdatafocus/ledger_analytics/models/reports"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// readinessGate answers 503 for app endpoints until ready reports true.
func readinessGate(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/healthz", "/metrics":
			c.Next()
			return
		}
		if !ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service not ready"})
			return
		}
		c.Next()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// production requires an explicit CORS_ALLOWED_ORIGINS allowlist
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders(middlewares.BusinessIdHeader, middlewares.CorrelationIdHeader, "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	return corsConfig
}

type routerDeps struct {
	reporter    *reports.Reporter
	metrics     *middlewares.Metrics
	ready       func() bool
	rateLimiter *middlewares.RateLimiter
	alertTopic  string
}

func newRouter(deps routerDeps) *gin.Engine {
	logger := config.GetLogger()

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.MetricsMiddleware(deps.metrics))
	r.Use(readinessGate(deps.ready))
	r.Use(cors.New(corsConfig()))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	h := &analyticsHandlers{
		reporter:   deps.reporter,
		metrics:    deps.metrics,
		alertTopic: deps.alertTopic,
	}
	api := r.Group("/api/analytics")
	api.Use(middlewares.BusinessMiddleware())
	if deps.rateLimiter != nil {
		api.Use(deps.rateLimiter.Middleware())
	}
	h.register(api)

	r.NoRoute(customNotFoundHandler)
	return r
}

func rateLimiterFromEnv() *middlewares.RateLimiter {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		return nil
	}
	limit := int64(600)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	windowSec := int64(60)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			windowSec = n
		}
	}
	return middlewares.NewRateLimiter(limit, time.Duration(windowSec)*time.Second)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// The ledger reader is bound to the DB handle once it exists; until then
	// the readiness gate keeps requests away from it.
	ledger := &lazyLedger{}
	router := newRouter(routerDeps{
		reporter:    reports.NewReporter(ledger, config.LoadAnalyticsConfig()),
		metrics:     middlewares.NewMetrics("ledger-analytics"),
		ready:       ledger.ready,
		rateLimiter: rateLimiterFromEnv(),
		alertTopic:  config.AnomalyAlertTopic(),
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	ledger.bind(models.NewLedgerReader(db))

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("analytics api listening on port ", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
