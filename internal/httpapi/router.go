package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"presensi/internal/attendance"
	"presensi/internal/forum"
	"presensi/internal/httpmiddleware"
	"presensi/internal/logger"
	"presensi/internal/metrics"
	"presensi/internal/store"
)

// Deps are the collaborators of the router. Snapshots, Forum and Hub are
// required.
type Deps struct {
	Snapshots Snapshots
	Forum     *forum.Service
	Hub       *Hub
	Store     store.KV
	Metrics   *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer        prometheus.Gatherer
	Policy          attendance.Policy
	Location        *time.Location
	Logger          *logrus.Logger
	RateLimitPerMin int
	AllowedOrigins  []string
	Now             func() time.Time
}

// NewRouter builds the HTTP handler of the dashboard.
func NewRouter(d Deps) *gin.Engine {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	log := logger.Component(d.Logger, "httpapi", "router")

	h := &Handler{
		snapshots: d.Snapshots,
		forum:     d.Forum,
		hub:       d.Hub,
		kv:        d.Store,
		metrics:   d.Metrics,
		policy:    d.Policy,
		loc:       d.Location,
		log:       log,
		now:       d.Now,
		summaries: cache.New(summaryTTL, summaryCleanup),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log, "/healthz", "/metrics"))
	r.Use(corsMiddleware(d.AllowedOrigins))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.Health)
	RegisterRoutes(r.Group("/v1"), h)
	return r
}

func requestLogger(log *logrus.Entry, skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if slices.Contains(skip, c.Request.URL.Path) {
			return
		}
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		ExposeHeaders: []string{"Content-Length", "Location", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
