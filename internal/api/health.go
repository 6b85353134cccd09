package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(gocommon.HealthResponse{
		Status:       "healthy",
		Service:      serviceName,
		ModelVersion: detector.ModelVersion,
	})
}

// ready fails while draining or when a configured backend is unreachable.
func (s *Server) ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := gocommon.ReadyResponse{
		Status:   "ready",
		Backends: map[string]string{},
	}
	ok := !s.draining.Load()
	if !ok {
		resp.Backends["server"] = "draining"
	}

	if err := s.deps.Store.HealthCheck(ctx); err != nil {
		resp.Backends[backendStore] = "unhealthy: " + err.Error()
		ok = false
	} else {
		resp.Backends[backendStore] = "healthy"
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.HealthCheck(ctx); err != nil {
			resp.Backends[backendCache] = "unhealthy: " + err.Error()
			ok = false
		} else {
			resp.Backends[backendCache] = "healthy"
		}
	}

	if s.deps.Breakers != nil {
		resp.CircuitBreakers = s.deps.Breakers.Statuses()
	}

	if !ok {
		resp.Status = "not_ready"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// stats handles GET /v1/stats
func (s *Server) stats(c *fiber.Ctx) error {
	var st *store.Stats
	err := guard(s.deps.Breakers, backendStore, func() error {
		var err error
		st, err = s.deps.Store.Stats(c.UserContext())
		return err
	})
	if err != nil {
		s.deps.Logger.Warn("stats unavailable", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "statistics are temporarily unavailable")
	}
	return c.JSON(st)
}
