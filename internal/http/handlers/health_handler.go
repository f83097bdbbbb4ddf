package handlers

import "github.com/gin-gonic/gin"

// HealthResponse is the liveness body.
type HealthResponse struct {
	OK bool `json:"ok" example:"true"`
}

// Health godoc
// @ID       health
// @Summary  Liveness probe
// @Tags     Health
// @Produce  json
// @Success  200  {object}  handlers.HealthResponse
// @Router   /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, HealthResponse{OK: true})
}
