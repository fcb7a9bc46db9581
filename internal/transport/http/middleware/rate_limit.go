package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/logger"
)

const defaultRateLimitMessage = "Too many requests, please try again later."

// IdentifierFunc extracts the key a rule counts requests under.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule is a sliding-window limit for one identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Message    string
	Identifier IdentifierFunc
}

// RateLimiter evaluates rules against a shared request log. Store failures
// let the request through.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

type ruleResult struct {
	rule       RateLimitRule
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(store port.RateLimitStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: log, now: time.Now}
}

// WithClock overrides the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIdentifier keys requests by the value of header when configured and
// present, falling back to the client IP.
func ClientIdentifier(header string) IdentifierFunc {
	header = strings.TrimSpace(header)
	return func(c *gin.Context) (string, bool) {
		if header != "" {
			if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
				return v, true
			}
		}
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit enforces rules in order; the first exhausted rule answers 429.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "global"
		}
		if rule.Message == "" {
			rule.Message = defaultRateLimitMessage
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var tightest *ruleResult

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			res, err := rl.evaluate(c, rule, rule.Name+":"+identifier, now)
			if err != nil {
				logger.WithContext(c.Request.Context(), rl.logger).Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("client", logger.MaskIP(identifier)),
					zap.Error(err),
				)
				continue
			}

			if !res.allowed {
				applyRateLimitHeaders(c, res)
				abortWithError(c, http.StatusTooManyRequests, http.StatusTooManyRequests, "rate_limited", res.rule.Message)
				return
			}
			if tightest == nil || res.remaining < tightest.remaining {
				snapshot := res
				tightest = &snapshot
			}
		}

		if tightest != nil {
			applyRateLimitHeaders(c, *tightest)
		}
		c.Next()
	}
}

func (rl *RateLimiter) evaluate(c *gin.Context, rule RateLimitRule, key string, now time.Time) (ruleResult, error) {
	ctx := c.Request.Context()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return ruleResult{}, fmt.Errorf("trim window: %w", err)
	}
	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return ruleResult{}, fmt.Errorf("count attempts: %w", err)
	}
	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return ruleResult{}, fmt.Errorf("oldest attempt: %w", err)
	}

	res := ruleResult{rule: rule, allowed: true, reset: now.Add(rule.Window)}
	if hasAttempts {
		res.reset = oldest.Add(rule.Window)
	}
	res.retryAfter = max(res.reset.Sub(now), 0)

	if count >= rule.Limit {
		res.allowed = false
		return res, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return ruleResult{}, fmt.Errorf("record attempt: %w", err)
	}
	res.remaining = max(rule.Limit-count-1, 0)
	return res, nil
}

func applyRateLimitHeaders(c *gin.Context, res ruleResult) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.rule.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.reset.Unix(), 10))
	if !res.allowed {
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.retryAfter.Seconds()))))
	}
}
