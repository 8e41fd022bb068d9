// Package middleware provides HTTP middleware for the AgencyDesk backend.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Bounds on header-sourced trace attributes. Headers are caller-controlled,
// so anything copied into a span gets validated or truncated first.
const (
	MaxRequestIDLength = 128
	MaxAgencyIDLength  = 64
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig configures the otelgin request-span middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin and enriches its request span with
// request_id, agency_id and user_id. Span names follow otelgin's
// "METHOD route" form, e.g. "POST /api/v1/installments/:id/payments".
// Disabled config yields a pass-through handler so callers never branch.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	base := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if agencyID := getAgencyID(c); agencyID != "" {
		span.SetAttributes(attribute.String("agency_id", agencyID))
	}
	if userID := getUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user_id", userID))
	}
}

// getRequestID prefers the ID minted by the RequestID middleware and only
// then falls back to the raw header, truncated to MaxRequestIDLength.
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok && id != "" {
			return id
		}
	}

	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// getAgencyID prefers the agency from verified JWT claims. The X-Agency-ID
// header is only honored when it parses as a UUID, since an arbitrary header
// value must not end up in trace attributes.
func getAgencyID(c *gin.Context) string {
	if agencyID, exists := c.Get(JWTAgencyIDKey); exists {
		if id, ok := agencyID.(string); ok && id != "" {
			return id
		}
	}

	headerAgencyID := c.GetHeader("X-Agency-ID")
	if headerAgencyID != "" && isValidAgencyID(headerAgencyID) {
		return headerAgencyID
	}
	return ""
}

func isValidAgencyID(agencyID string) bool {
	if len(agencyID) > MaxAgencyIDLength {
		return false
	}
	return uuidRegex.MatchString(agencyID)
}

func getUserID(c *gin.Context) string {
	if userID, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := userID.(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// SpanErrorMarker marks the request span as errored for 4xx/5xx responses.
// Place it after TracingWithConfig in the chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		var errorMessage string
		switch {
		case statusCode >= http.StatusInternalServerError:
			errorMessage = "Internal Server Error"
		case statusCode == http.StatusUnauthorized:
			errorMessage = "Unauthorized"
		case statusCode == http.StatusForbidden:
			errorMessage = "Forbidden"
		case statusCode == http.StatusNotFound:
			errorMessage = "Not Found"
		default:
			errorMessage = "Client Error"
		}

		span.SetStatus(codes.Error, errorMessage)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

// TracingAttributeInjector re-enriches the request span once authentication
// has run, so agency_id and user_id from JWT claims replace header fallbacks.
// Place it after both TracingWithConfig and the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}
