package middleware

import (
	"net/http"
	"time"

	"tweetube/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger writes one structured line per request. 5xx responses log at
// error, 4xx at warn, everything else at info. At debug level a second line
// carries response size and user agent.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		if rawQuery != "" {
			path = path + "?" + rawQuery
		}

		status := c.Writer.Status()
		log := logger.With("http")
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}

		if userID := c.GetString(ContextUserID); userID != "" {
			event = event.Str("user_id", userID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")

		if logger.IsDebugEnabled() {
			logger.Debugf(
				"%s | %d | %s | %d bytes | %s",
				c.Request.Method,
				status,
				path,
				c.Writer.Size(),
				c.Request.UserAgent(),
			)
		}
	}
}
