package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/observability"
	"github.com/kbukum/authgate/pow"
)

// ProofOfWork rejects requests without a valid proof-of-work challenge in
// the X-Timestamp, X-Fingerprint, X-Pow-Nonce and X-Pow-Solution headers.
func ProofOfWork(gate *pow.Gate, metrics *observability.AuthMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := gate.Verify(pow.ChallengeFromHeaders(c.Request.Header)); err != nil {
			ctx := c.Request.Context()
			reason := pow.Reason(err)
			metrics.PowRejection(ctx, reason)
			logger.GetGlobalLogger().WithComponent("pow").WithContext(ctx).
				Debug("Proof of work rejected", logger.Fields(logger.FieldReason, reason))
			abortWithError(c, pow.ToAppError(err))
			return
		}
		c.Next()
	}
}
