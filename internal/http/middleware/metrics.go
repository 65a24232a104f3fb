// README: Prometheus request counter middleware.
package middleware

import (
	"github.com/gin-gonic/gin"

	"ridebook/internal/metrics"
)

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.IncHTTP(c.Request.Method, routeOf(c), c.Writer.Status())
	}
}
