package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

// RequestLogger emits one access line per request. 5xx log at error, 4xx at
// warn. Paths in quiet are only logged when they fail.
func RequestLogger(log *logger.Logger, quiet ...string) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if skip[route] && status < 400 {
			return
		}
		if route == "" {
			route = "unmatched"
		}

		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if n := c.Writer.Size(); n > 0 {
			kv = append(kv, "bytes", n)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		kv = append(kv, ctxutil.LogFields(c.Request.Context())...)

		switch {
		case status >= 500:
			log.Error("http request", kv...)
		case status >= 400:
			log.Warn("http request", kv...)
		default:
			log.Info("http request", kv...)
		}
	}
}
