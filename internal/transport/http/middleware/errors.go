package middleware

import "github.com/gin-gonic/gin"

// ErrorResponse is the error body shared by middleware and handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse stamps the body with the request's trace id.
func NewErrorResponse(c *gin.Context, code int, kind, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		Code:    code,
		Kind:    kind,
		TraceID: GetTraceID(c),
	}
}

func abortWithError(c *gin.Context, status, code int, kind, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(c, code, kind, message))
}
