package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/response"
)

const ContextRequestID = "request_id"

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// RequestLogger logs one line per request and recovers from panics. Panic
// details go to the log only; the client gets a generic 500 envelope.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				event := requestEvent(c, start, logger.FromContext(c.Request.Context()).Error())
				event.Str("panic", fmt.Sprintf("%v", recovered)).
					Bytes("stack", debug.Stack()).
					Msg("request panic")

				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
				}
				c.Abort()
				return
			}

			log := logger.FromContext(c.Request.Context())
			var event *zerolog.Event
			switch status := c.Writer.Status(); {
			case status >= http.StatusInternalServerError || len(c.Errors) > 0:
				event = log.Error()
			case status >= http.StatusBadRequest:
				event = log.Warn()
			default:
				event = log.Info()
			}
			if len(c.Errors) > 0 {
				event.Str("errors", c.Errors.String())
			}
			requestEvent(c, start, event).Msg("request")
		}()

		c.Next()
	}
}

func requestEvent(c *gin.Context, start time.Time, event *zerolog.Event) *zerolog.Event {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return event.
		Str("method", c.Request.Method).
		Str("route", route).
		Int("status", c.Writer.Status()).
		Dur("latency", time.Since(start)).
		Str("client_ip", c.ClientIP()).
		Int64("user_id", c.GetInt64(ContextUserID)).
		Str("request_id", c.GetString(ContextRequestID))
}
