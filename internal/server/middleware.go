package server

import (
	"crypto/subtle"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/schoolbilling/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/schoolbilling/internal/observability/metrics"
	"github.com/smallbiznis/schoolbilling/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	headerAPIKey        = "X-API-Key"
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "

	contextKeyAPIKey = "api_key"
)

// APIKeyRequired accepts the configured key from X-API-Key or a bearer
// token. A missing key is 401, a wrong one 403.
func APIKeyRequired(expected string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(expected))
	return func(c *gin.Context) {
		provided := apiKeyFromRequest(c)
		if provided == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Set(contextKeyAPIKey, provided)
		c.Next()
	}
}

func apiKeyFromRequest(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(headerAPIKey)); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.GetHeader(headerAuthorization))
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	return ""
}

// RateLimit throttles the routes it guards per API key, falling back to the
// client address. A nil limiter lets everything through; limiter failures
// fail open.
func RateLimit(limiter ratelimit.Limiter, metrics *obsmetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := c.GetString(contextKeyAPIKey)
		if key == "" {
			key = c.ClientIP()
		}
		key = c.Request.Method + ":" + key

		result, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			obslogger.FromContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))
		if !result.ResetTime.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
		}

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			route := c.FullPath()
			if route == "" {
				route = "unknown"
			}
			metrics.RecordRateLimitDenied(c.Request.Context(), route)
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
