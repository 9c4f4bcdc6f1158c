package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/logger"
	"ingestion-portal/pkg/errors"
)

const requestIDHeader = "X-Request-ID"

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware attaches a request-scoped logger carrying the request id and logs
// every completed request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		reqLog := logger.Component("api").With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		event := reqLog.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = reqLog.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.FromContext(c.Request.Context()).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// AuthMiddleware verifies the bearer token and resolves the caller's capabilities once per request.
func AuthMiddleware(tokens TokenVerifier, resolver CapabilityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		principal, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		caps, err := resolver.Resolve(c.Request.Context(), principal)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), principal, caps))
		c.Next()
	}
}

func RequirePrivileged() gin.HandlerFunc {
	return requireCapability(auth.Capabilities.IsPrivileged)
}

func RequireAdmin() gin.HandlerFunc {
	return requireCapability(auth.Capabilities.IsAdmin)
}

func requireCapability(check func(auth.Capabilities) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, caps, ok := auth.FromContext(c.Request.Context())
		if !ok || !check(caps) {
			respondError(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
