package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorHandler turns errors attached to the context into a JSON
// response. Application errors carry their own status; anything else
// is a 500 with a generic message so internals never leak.
func ErrorHandler(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		lastErr := c.Errors.Last()
		logger.Error().
			Err(lastErr.Err).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request error")

		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		if statusErr, ok := lastErr.Err.(interface{ StatusCode() int }); ok {
			status = statusErr.StatusCode()
			message = lastErr.Err.Error()
		}

		c.JSON(status, gin.H{"error": message})
	}
}
