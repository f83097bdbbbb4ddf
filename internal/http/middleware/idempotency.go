package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets a client retry POST /api/contact without storing
// the submission twice.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions bounds accepted keys.
type IdempotencyOptions struct {
	MaxLen  int            // <= 0 means 200
	Pattern *regexp.Regexp // nil means ^[A-Za-z0-9._~\-:]+$
}

// IdempotencyLookup reports whether key already maps to a stored submission
// that has not expired at now.
type IdempotencyLookup func(ctx context.Context, key string, now time.Time) (bool, error)

// IdempotencyKey validates the Idempotency-Key header when present and stashes
// it for GetIdempotencyKey. A malformed key is rejected with 400. When lookup
// finds the key, the request is marked as a replay (IsReplay) so the rate
// limiter lets it through; lookup errors are ignored and the request proceeds.
func IdempotencyKey(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if found, err := lookup(c.Request.Context(), key, time.Now().UTC()); err == nil && found {
				c.Set(ctxKeyIdemReplay, true)
			}
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether IdempotencyKey found the key already recorded.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}
