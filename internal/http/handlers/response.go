// Package handlers implements the HTTP endpoints of the contact intake API.
//
// Every response body carries a boolean "ok". Failures add a human-readable
// "error"; successful submissions add the stored "id":
//
//	HTTP/1.1 400 Bad Request
//	{"ok":false,"error":"All fields are required"}
//
//	HTTP/1.1 200 OK
//	{"ok":true,"id":"3f2b6c1e0d9a4b7c8e5f1a2b3c4d5e6f"}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contact-intake/internal/http/middleware"
)

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok" example:"false"`
	Error string `json:"error" example:"All fields are required"`
}

// fail aborts with the error envelope. 5xx responses are also logged with the
// request-scoped logger; the caller's own log line carries the detail.
func fail(c *gin.Context, status int, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("error", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{OK: false, Error: msg})
}

// Fail is fail for callers outside this package (router fallbacks).
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg) }

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
