package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/circuitbreaker"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

// guard runs fn behind the named breaker. A nil registry runs fn directly.
func guard(r *circuitbreaker.Registry, backend string, fn func() error) error {
	if r == nil {
		return fn()
	}
	return r.Get(backend).Execute(fn)
}

// eventRecorder publishes detection events to the Redis stream when the
// cache is enabled and writes them straight to the store otherwise.
type eventRecorder struct {
	store    store.Store
	cache    *cache.RedisCache
	breakers *circuitbreaker.Registry
	logger   *slog.Logger
}

func newEventRecorder(deps Deps) *eventRecorder {
	return &eventRecorder{
		store:    deps.Store,
		cache:    deps.Cache,
		breakers: deps.Breakers,
		logger:   deps.Logger,
	}
}

// Record never fails the request; lost events only skew statistics.
func (r *eventRecorder) Record(ctx context.Context, e store.DetectionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	var err error
	if r.cache != nil {
		err = guard(r.breakers, backendCache, func() error {
			return r.cache.RecordDetection(ctx, e)
		})
	} else {
		err = guard(r.breakers, backendStore, func() error {
			return r.store.InsertDetections(ctx, []store.DetectionEvent{e})
		})
	}
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		r.logger.Warn("failed to record detection event", "event_id", e.ID, "error", err)
	}
}

// rateLimit applies the per-IP detection limit when Redis is enabled.
// Redis errors let the request through.
func rateLimit(deps Deps) fiber.Handler {
	if deps.Cache == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	limit := deps.Config.RateLimitDetectPerMinute

	return func(c *fiber.Ctx) error {
		var allowed bool
		err := guard(deps.Breakers, backendCache, func() error {
			var err error
			allowed, err = deps.Cache.CheckRateLimit(c.UserContext(), "detect:"+c.IP(), limit, time.Minute)
			return err
		})
		if err != nil {
			if !errors.Is(err, circuitbreaker.ErrOpen) {
				deps.Logger.Warn("rate limit check failed", "error", err)
			}
			return c.Next()
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
