package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// Health returns a handler that runs every check and answers 200 with
// status UP, or 503 with status DOWN and the failing components.
func Health(service string, checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		components := make(map[string]string, len(checks))
		status := "UP"
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = "DOWN: " + err.Error()
				status = "DOWN"
				continue
			}
			components[name] = "UP"
		}

		code := http.StatusOK
		if status != "UP" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    service,
			"timestamp":  time.Now().UnixMilli(),
			"components": components,
		})
	}
}
