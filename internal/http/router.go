// Package httpapi wires the Gin engine: middleware, the contact API under
// the configured base path, /metrics, and optional Swagger UI.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-contact-intake/docs"
	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/http/handlers"
	"github.com/tbourn/go-contact-intake/internal/http/middleware"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Contact handlers.ContactService
	// IdempotencyLookup lets replays skip the rate limiter. Nil when the
	// idempotency ledger is disabled.
	IdempotencyLookup middleware.IdempotencyLookup
}

// RegisterRoutes installs middleware and routes on r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Access logger (PII-scrubbed unless cfg.LogRedact is off)
//  4. Recovery
//  5. Body size limit, gzip, Prometheus metrics (/metrics is mounted here)
//  6. CORS for the API prefix, so preflights are answered before limiting
//  7. Security headers
//
// Idempotency-Key validation and the per-IP rate limiter guard only
// POST /contact; health stays unconditional.
func RegisterRoutes(r *gin.Engine, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())

	r.Use(limitBody(cfg.MaxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.CORS(middleware.CORSOptions{
		PathPrefix:     cfg.APIBasePath,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.MsgRouteNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed)
	})

	submit := []gin.HandlerFunc{
		middleware.IdempotencyKey(middleware.IdempotencyOptions{}, deps.IdempotencyLookup),
	}
	if cfg.RateRPS > 0 {
		submit = append(submit, middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP).Handler())
	}

	h := handlers.New(deps.Contact)
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/health", h.Health)
		api.POST("/contact", append(submit, h.SubmitContact)...)
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// limitBody caps request bodies; reads past maxBytes fail with
// *http.MaxBytesError. maxBytes <= 0 disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
