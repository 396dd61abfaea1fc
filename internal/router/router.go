package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	healthH  Handler
	linkerH  Handler
	checkinH Handler
	gatherer prometheus.Gatherer
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	// RateLimit of zero disables rate limiting.
	RateLimit rate.Limit
	RateBurst int
}

// NewRouter builds the engine and its global middleware. A nil auth leaves the
// staff routes open, which is only meant for local development.
func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	linkerH Handler,
	checkinH Handler,
	log *logger.Logger,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		healthH:  healthH,
		linkerH:  linkerH,
		checkinH: checkinH,
		gatherer: gatherer,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	root := &r.engine.RouterGroup

	r.healthH.RegisterRoutes(root)
	if r.gatherer != nil {
		r.engine.GET("/metrics", handler.MetricsHandler(r.gatherer))
	}

	staff := r.engine.Group("")
	if r.auth != nil {
		staff.Use(r.auth.Authenticate())
	}

	r.linkerH.RegisterRoutes(staff.Group("/admin"))
	r.checkinH.RegisterRoutes(staff.Group("/cellular-energy"))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
