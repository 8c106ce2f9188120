package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck checks one dependency.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewHealthCheck runs every checker with a shared timeout and answers 503 when
// any of them fails.
func NewHealthCheck(service string, timeout time.Duration, checkers ...DependencyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		status := "ok"
		checks := make(map[string]string, len(checkers))
		for _, checker := range checkers {
			if err := checker.Check(ctx); err != nil {
				checks[checker.Name] = err.Error()
				status = "degraded"
				continue
			}
			checks[checker.Name] = "ok"
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"code":    code,
			"message": status,
			"data": gin.H{
				"status":  status,
				"service": service,
				"checks":  checks,
			},
		})
	}
}
