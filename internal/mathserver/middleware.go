package mathserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/betbot/gostat/internal/metrics"
)

type ctxKey string

const (
	requestIDKey ctxKey = "gostat_request_id"
	callerKey    ctxKey = "gostat_caller"
)

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

func callerFrom(r *http.Request) string {
	caller, _ := r.Context().Value(callerKey).(string)
	return caller
}

// requestIDMiddleware tags every request, honoring a caller-provided
// X-Request-ID so distributed traces line up.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		ctx := context.WithValue(c.Request.Context(), requestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authMiddleware resolves the bearer token to a caller name. When no
// token store is configured the service is open and the caller stays
// anonymous.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.tokens == nil {
			c.Next()
			return
		}
		raw := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		if raw == "" || token == raw || token == "" {
			metrics.AuthFailures.Add(1)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: "missing bearer token", Code: "unauthorized",
			})
			return
		}
		name, ok, err := s.tokens.Lookup(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
				Error: "token store unavailable", Code: "auth_unavailable",
			})
			return
		}
		if !ok {
			metrics.AuthFailures.Add(1)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: "invalid token", Code: "unauthorized",
			})
			return
		}
		ctx := context.WithValue(c.Request.Context(), callerKey, name)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// rateLimitMiddleware buckets by caller name when authenticated,
// otherwise by client IP.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		caller := callerFrom(c.Request)
		if caller == "" {
			caller = c.ClientIP()
		}
		if !s.limiter.Allow(caller) {
			metrics.RateLimited.Add(1)
			retry := time.Until(s.limiter.GetResetTime(caller))
			secs := int(retry.Seconds()) + 1
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error: "rate limit exceeded", Code: "rate_limited",
			})
			return
		}
		c.Next()
	}
}
