package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/observability"
	"github.com/kbukum/authgate/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(c *gin.Context) string

// RateLimitOption configures RateLimit.
type RateLimitOption func(*rateLimitOptions)

type rateLimitOptions struct {
	keyFunc KeyFunc
	skip    func(c *gin.Context) bool
	metrics *observability.AuthMetrics
	log     *logger.Logger
}

// WithKeyFunc overrides the default client IP key.
func WithKeyFunc(fn KeyFunc) RateLimitOption {
	return func(o *rateLimitOptions) {
		if fn != nil {
			o.keyFunc = fn
		}
	}
}

// WithSkip bypasses the limiter for requests where skip returns true.
func WithSkip(skip func(c *gin.Context) bool) RateLimitOption {
	return func(o *rateLimitOptions) { o.skip = skip }
}

// WithRateLimitMetrics counts rejections on m.
func WithRateLimitMetrics(m *observability.AuthMetrics) RateLimitOption {
	return func(o *rateLimitOptions) { o.metrics = m }
}

// WithRateLimitLogger logs rejections on log.
func WithRateLimitLogger(log *logger.Logger) RateLimitOption {
	return func(o *rateLimitOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// ClientIPKey keys requests by client IP.
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit counts each request against l. Every counted response carries
// the X-RateLimit-* headers; rejected ones get 429 and Retry-After.
func RateLimit(l *ratelimit.Limiter, opts ...RateLimitOption) gin.HandlerFunc {
	o := rateLimitOptions{keyFunc: ClientIPKey, log: logger.GetGlobalLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithComponent("ratelimit")

	return func(c *gin.Context) {
		if o.skip != nil && o.skip(c) {
			c.Next()
			return
		}

		key := o.keyFunc(c)
		res := l.Allow(key)

		h := c.Writer.Header()
		h.Set(HeaderRateLimitLimit, strconv.Itoa(res.Limit))
		h.Set(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))
		h.Set(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			ctx := c.Request.Context()
			h.Set(HeaderRetryAfter, strconv.Itoa(apperrors.RetryAfterSeconds(res.RetryAfter)))
			o.metrics.RateLimitRejection(ctx, l.Name())
			log.WithContext(ctx).Debug("Rate limit exceeded", logger.Fields("limiter", l.Name(), "key", key))
			abortWithError(c, apperrors.RateLimited(res.RetryAfter))
			return
		}
		c.Next()
	}
}
