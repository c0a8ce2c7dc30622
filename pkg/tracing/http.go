package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var untracedPrefixes = []string{"/health", "/metrics", "/swagger"}

// GinMiddleware traces API requests. Probe, scrape and docs traffic is left out.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(isTraced))
}

// ViewAttributes tags the server span of routes with an :id parameter. It must
// run after GinMiddleware.
func ViewAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if viewID := c.Param("id"); viewID != "" {
			trace.SpanFromContext(c.Request.Context()).SetAttributes(ViewIDKey.String(viewID))
		}
		c.Next()
	}
}

func isTraced(r *http.Request) bool {
	for _, prefix := range untracedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}
