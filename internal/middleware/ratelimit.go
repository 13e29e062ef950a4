package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"anoa.com/attachments/pkg/apperror"
	"anoa.com/attachments/pkg/ratelimiter"
	"anoa.com/attachments/pkg/response"
	"anoa.com/attachments/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit enforces a cooldown of limit between two requests of the same
// caller. Callers are keyed by their verified subject, or by client IP when
// the token does not verify. The slot is released again when the request
// fails. Without redis the cooldown is not enforced.
func RateLimit(rdb *redis.Client, verifier token.Verifier, action string, limit time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if claims, err := verifier.Verify(Token(c)); err == nil {
			subject = claims.SubjectID()
		}

		ctx := c.Request.Context()
		allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, rdb, subject, action, limit)
		if err != nil {
			response.ResponseError(c, logger, apperror.Internal(err))
			c.Abort()
			return
		}
		if !allowed {
			ttl, _ := ratelimiter.GetRateLimitTTL(ctx, rdb, subject, action)
			if ttl < time.Second {
				ttl = time.Second
			}
			rateLimitErr := &ratelimiter.RateLimitError{
				Message:    fmt.Sprintf("You are doing that too fast. Please wait %.0f seconds.", ttl.Seconds()),
				RetryAfter: ttl,
			}

			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
			response.ResponseError(c, logger, apperror.New(http.StatusTooManyRequests, "Too many requests", rateLimitErr.Message, apperror.ErrRateLimitExceeded))
			c.Abort()
			return
		}

		c.Next()

		// A rejected request does not use up the caller's slot.
		if c.Writer.Status() >= http.StatusBadRequest {
			if err := ratelimiter.ClearRateLimit(context.WithoutCancel(ctx), rdb, subject, action); err != nil {
				logger.Warn("Failed to release rate limit", zap.String("action", action), zap.Error(err))
			}
		}
	}
}
