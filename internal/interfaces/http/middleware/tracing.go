// Package middleware provides HTTP middleware for the lot ledger API.
package middleware

import (
	"net/http"

	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxAttributeLength caps header-sourced span attributes
const MaxAttributeLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "lotledger",
		Enabled:     true,
	}
}

// Tracing returns otelgin middleware, or a pass-through when disabled.
// Spans are named "METHOD route", e.g. "GET /api/v1/skus/:sku/lots/:lot".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanAttributes decorates the request span with the request ID, the actor
// and the lot addressed by the route, and marks 4xx/5xx responses as errors.
// It must run after Tracing and logger.GinLogger.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := c.GetString(RequestIDKey); id != "" {
			span.SetAttributes(attribute.String("request_id", truncate(id)))
		}
		if actor := logger.GetActor(c.Request.Context()); actor != "" {
			span.SetAttributes(attribute.String("actor", truncate(actor)))
		}
		if sku := c.Param("sku"); sku != "" {
			span.SetAttributes(attribute.String("ledger.sku", sku))
		}
		if lot := c.Param("lot"); lot != "" {
			span.SetAttributes(attribute.String("ledger.lot", lot))
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(attribute.String("error.code", code))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, "Internal Server Error")
		} else {
			span.SetStatus(codes.Error, "Client Error")
		}
	}
}

// ErrorCodeKey is the gin context key handlers set to the code of a failed request
const ErrorCodeKey = "error_code"

func truncate(s string) string {
	if len(s) > MaxAttributeLength {
		return s[:MaxAttributeLength]
	}
	return s
}
