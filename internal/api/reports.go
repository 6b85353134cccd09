package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/auth"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/report"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/services"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

// ReportHandler serves report export and sharing.
type ReportHandler struct {
	deps Deps
	qr   *services.QRService
}

// CreateReportResponse is returned by POST /v1/reports.
type CreateReportResponse struct {
	ID        string         `json:"id"`
	FileName  string         `json:"fileName"`
	ShareURL  string         `json:"shareUrl"`
	ShareText string         `json:"shareText"`
	Report    *report.Report `json:"report"`
}

// Create handles POST /v1/reports. The body is a DetectionResult.
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var result detector.DetectionResult
	if err := json.Unmarshal(c.Body(), &result); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid detection result")
	}
	if !result.ContentType.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, detector.ErrUnknownKind.Error())
	}
	if !inPercentRange(result.AIProbability) || !inPercentRange(result.Confidence) {
		return fiber.NewError(fiber.StatusBadRequest, "aiProbability and confidence must be within [0, 100]")
	}

	now := h.deps.Now()
	rep := report.New(&result, now)
	payload, err := report.Marshal(rep)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	ctx := c.UserContext()

	stored := guard(h.deps.Breakers, backendStore, func() error {
		return h.deps.Store.SaveReport(ctx, &store.Report{
			ID:            id,
			CreatedAt:     now,
			FileName:      report.FileName(now),
			Kind:          result.ContentType,
			AIProbability: result.AIProbability,
			OwnerID:       auth.Subject(c),
			Payload:       payload,
		})
	})
	if stored != nil {
		h.deps.Logger.Warn("failed to persist report", "report_id", id, "error", stored)
	}

	cached := errors.New("cache disabled")
	if h.deps.Cache != nil {
		cached = guard(h.deps.Breakers, backendCache, func() error {
			return h.deps.Cache.SetReport(ctx, id, payload)
		})
		if cached != nil {
			h.deps.Logger.Warn("failed to cache report", "report_id", id, "error", cached)
		}
	}

	if stored != nil && cached != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "report storage is temporarily unavailable")
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.ReportsExported.Inc()
	}

	return c.Status(fiber.StatusCreated).JSON(CreateReportResponse{
		ID:        id,
		FileName:  report.FileName(now),
		ShareURL:  h.shareURL(id),
		ShareText: report.ShareText(&result),
		Report:    rep,
	})
}

// Get handles GET /v1/reports/:id
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	payload, err := h.payload(c)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(payload)
}

// Download handles GET /v1/reports/:id/download
func (h *ReportHandler) Download(c *fiber.Ctx) error {
	payload, err := h.payload(c)
	if err != nil {
		return err
	}

	name := "ai-detection-report.json"
	if rep, err := report.Parse(payload); err == nil {
		if created, err := rep.CreatedAt(); err == nil {
			name = report.FileName(created)
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(payload)
}

// QR handles GET /v1/reports/:id/qr - renders the share URL as a PNG
func (h *ReportHandler) QR(c *fiber.Ctx) error {
	if _, err := h.payload(c); err != nil {
		return err
	}

	size, _ := strconv.Atoi(c.Query("size"))
	png, err := h.qr.GeneratePNG(h.shareURL(c.Params("id")), size)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(png)
}

// payload loads a report from the cache, then the store, backfilling the
// cache on a store hit.
func (h *ReportHandler) payload(c *fiber.Ctx) ([]byte, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid report ID")
	}
	ctx := c.UserContext()

	if h.deps.Cache != nil {
		var payload []byte
		err := guard(h.deps.Breakers, backendCache, func() error {
			var err error
			payload, err = h.deps.Cache.GetReport(ctx, id)
			if errors.Is(err, cache.ErrCacheMiss) {
				return nil
			}
			return err
		})
		if err == nil && payload != nil {
			return payload, nil
		}
	}

	var rep *store.Report
	err := guard(h.deps.Breakers, backendStore, func() error {
		var err error
		rep, err = h.deps.Store.GetReport(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		h.deps.Logger.Warn("failed to load report", "report_id", id, "error", err)
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "report storage is temporarily unavailable")
	}
	if rep == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "report not found")
	}

	if h.deps.Cache != nil {
		_ = guard(h.deps.Breakers, backendCache, func() error {
			return h.deps.Cache.SetReport(ctx, id, rep.Payload)
		})
	}
	return rep.Payload, nil
}

func (h *ReportHandler) shareURL(id string) string {
	return h.deps.Config.BaseURL + "/v1/reports/" + id
}

func inPercentRange(v float64) bool {
	return v >= 0 && v <= 100
}
