package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSOptions scopes cross-origin access to one path prefix.
type CORSOptions struct {
	// PathPrefix limits CORS handling to paths equal to or below it ("/api").
	// Empty applies CORS everywhere.
	PathPrefix string
	// AllowedOrigins is an allowlist; empty allows every origin.
	AllowedOrigins []string
}

// CORS wraps gin-contrib/cors so only requests under opts.PathPrefix get CORS
// headers and preflight handling. Install it on the engine (not a group) so
// OPTIONS preflights, which match no route, still reach it.
func CORS(opts CORSOptions) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderIdempotencyKey, requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = opts.AllowedOrigins
	}
	handle := cors.New(cfg)
	prefix := strings.TrimRight(opts.PathPrefix, "/")

	return func(c *gin.Context) {
		if !underPrefix(c.Request.URL.Path, prefix) {
			c.Next()
			return
		}
		handle(c)
	}
}

func underPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
