package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the trace id in both directions.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for the trace id.
	TraceIDKey = "trace_id"

	requestContextKey = "request_context"
)

// RequestContext holds request-scoped information shared by later stages.
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext assigns a trace id, reusing the caller's when present.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace id or an empty string outside EnrichContext.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetRequestContext never returns nil.
func GetRequestContext(c *gin.Context) *RequestContext {
	if val, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := val.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}
