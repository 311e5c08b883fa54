package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/athathco/athath-backend/api/responses"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// PaymentRateLimitPolicy throttles the pay and checkout surfaces. Card testing
// rings cycle stolen card numbers through small charges; per-subject limits
// stop a compromised account, per-IP limits stop account rotation.
type PaymentRateLimitPolicy struct {
	window       time.Duration
	ipLimit      int
	subjectLimit int
}

func NewPaymentRateLimitPolicy(window time.Duration, ipLimit, subjectLimit int) PaymentRateLimitPolicy {
	return PaymentRateLimitPolicy{window: window, ipLimit: ipLimit, subjectLimit: subjectLimit}
}

func (p PaymentRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.subjectLimit > 0)
}

// PaymentRateLimit enforces the policy. It must run after Auth so the subject
// id is on the context.
func PaymentRateLimit(policy PaymentRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					key := store.RateLimitKey("pay:ip:" + ip)
					count, err := store.IncrWithTTL(ctx, key, policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if count > int64(policy.ipLimit) {
						blockRequest(ctx, logg, w, "ip", count, policy.ipLimit, policy.window)
						return
					}
				}
			}

			if policy.subjectLimit > 0 {
				if subject := SubjectIDFromContext(ctx); subject != "" {
					key := store.RateLimitKey("pay:subject:" + subject)
					count, err := store.IncrWithTTL(ctx, key, policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if count > int64(policy.subjectLimit) {
						blockRequest(ctx, logg, w, "subject", count, policy.subjectLimit, policy.window)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func blockRequest(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, scope string, count int64, limit int, window time.Duration) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(window.Seconds()),
		})
		logg.Warn(logCtx, "payment attempt rate limited")
	}
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many payment attempts, slow down"))
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
