package handler

import (
	"net/http"

	health "anoa.com/attachments/internal/modules/health/service"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Check answers 200 while every probed service is up and 503 otherwise.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if status.Status != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
