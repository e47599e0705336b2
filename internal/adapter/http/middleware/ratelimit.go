package middleware

import (
	"strconv"
	"time"

	redisStore "settlement-ledger/internal/adapter/storage/redis"
	"settlement-ledger/pkg/apperror"
	"settlement-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouteGroup names a family of routes sharing one request budget.
type RouteGroup string

const (
	GroupMerchants     RouteGroup = "merchants"
	GroupPayments      RouteGroup = "payments"
	GroupRefunds       RouteGroup = "refunds"
	GroupQueries       RouteGroup = "queries"
	GroupHoldings      RouteGroup = "holdings"
	GroupOperatorToken RouteGroup = "operator_token"
)

// RateLimitRule is a fixed-window budget.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimits maps route groups to their budgets. Groups without an entry
// are not limited.
type RateLimits map[RouteGroup]RateLimitRule

// DefaultRateLimits returns the per-minute budgets the ledger ships with.
func DefaultRateLimits() RateLimits {
	perMinute := func(n int64) RateLimitRule { return RateLimitRule{Limit: n, Window: time.Minute} }
	return RateLimits{
		GroupMerchants:     perMinute(10),
		GroupPayments:      perMinute(100),
		GroupRefunds:       perMinute(30),
		GroupQueries:       perMinute(300),
		GroupHoldings:      perMinute(60),
		GroupOperatorToken: perMinute(10),
	}
}

// Middleware returns the limiter for group, or a pass-through when the
// store is nil or the group has no budget.
func (l RateLimits) Middleware(store *redisStore.RateLimitStore, group RouteGroup, log zerolog.Logger) gin.HandlerFunc {
	rule, ok := l[group]
	if !ok || store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return RateLimiter(store, group, rule, log)
}

// RateLimiter counts every request against the caller's budget for group.
// Redis failures let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group RouteGroup, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}
		subject := rateSubject(c)
		res, err := store.Allow(c.Request.Context(), subject+":"+string(group), rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).
				Str("group", string(group)).
				Str("subject", subject).
				Msg("rate limiter unavailable, failing open")
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))
		if res.Allowed {
			c.Next()
			return
		}

		wait := max(res.ResetAt-time.Now().Unix(), 1)
		h.Set("Retry-After", strconv.FormatInt(wait, 10))
		log.Debug().Str("group", string(group)).Str("subject", subject).Msg("rate limit exceeded")
		response.Abort(c, apperror.ErrRateLimitExceeded())
	}
}

// rateSubject picks whose budget a request spends. The signer header is
// read before signature verification, so a forged header only burns the
// forged signer's budget.
func rateSubject(c *gin.Context) string {
	switch {
	case c.GetHeader(HeaderSigner) != "":
		return c.GetHeader(HeaderSigner)
	case c.GetString(CtxOperator) != "":
		return "op:" + c.GetString(CtxOperator)
	default:
		return c.ClientIP()
	}
}
