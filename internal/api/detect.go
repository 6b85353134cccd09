package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/ingest"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

// DetectHandler serves the detection endpoints.
type DetectHandler struct {
	deps   Deps
	events *eventRecorder
}

// DetectRequest is the body of POST /v1/detect.
type DetectRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// FileView describes an ingested upload in API responses.
type FileView struct {
	Name            string                `json:"name"`
	Size            int64                 `json:"size"`
	SizeText        string                `json:"sizeText"`
	MimeType        string                `json:"mimeType"`
	TypeDescription string                `json:"typeDescription"`
	Kind            detector.ContentKind  `json:"type"`
	Encoding        string                `json:"encoding,omitempty"`
	Preview         string                `json:"preview"`
	ImageAnalysis   *ingest.ImageAnalysis `json:"imageAnalysis,omitempty"`
}

// FileDetectResponse is the body returned by POST /v1/detect/file.
type FileDetectResponse struct {
	File    FileView                  `json:"file"`
	Results *detector.DetectionResult `json:"results"`
}

// DetectContent handles POST /v1/detect
func (h *DetectHandler) DetectContent(c *fiber.Ctx) error {
	var req DetectRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := detector.ParseContentKind(req.ContentType)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(h.run(c, req.Content, kind, "api"))
}

// DetectFile handles POST /v1/detect/file with a multipart "file" field.
func (h *DetectHandler) DetectFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field \"file\" is required")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable upload")
	}

	mimeType := ingest.ResolveMIME(fh.Filename, fh.Header.Get(fiber.HeaderContentType), data)
	if err := ingest.Validate(fh.Filename, mimeType, int64(len(data)), int64(h.deps.Config.BodyLimit)); err != nil {
		switch {
		case errors.Is(err, ingest.ErrTooLarge):
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ingest.ErrUnsupportedType):
			return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	pf := ingest.ProcessFile(fh.Filename, mimeType, data)
	result := h.run(c, pf.Content, pf.Kind, "upload")

	return c.JSON(FileDetectResponse{
		File: FileView{
			Name:            pf.Metadata.Name,
			Size:            pf.Metadata.Size,
			SizeText:        ingest.FormatSize(pf.Metadata.Size),
			MimeType:        pf.Metadata.MimeType,
			TypeDescription: ingest.TypeDescription(pf.Metadata.MimeType),
			Kind:            pf.Kind,
			Encoding:        pf.Metadata.Encoding,
			Preview:         ingest.Preview(pf.Content),
			ImageAnalysis:   pf.Metadata.ImageAnalysis,
		},
		Results: result,
	})
}

// detectContext bounds the simulated inference delay by the write timeout.
// fiber's user context carries no deadline of its own.
func (h *DetectHandler) detectContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if d := h.deps.Config.WriteTimeout; d > 0 {
		return context.WithTimeout(c.UserContext(), d)
	}
	return context.WithCancel(c.UserContext())
}

// run always yields a result. Pipeline failures are logged and replaced by
// the fallback result.
func (h *DetectHandler) run(c *fiber.Ctx, content string, kind detector.ContentKind, source string) *detector.DetectionResult {
	start := time.Now()
	ctx, cancel := h.detectContext(c)
	result, err := h.deps.Detector.DetectOrFallback(ctx, content, kind)
	cancel()

	status := "success"
	if err != nil {
		status = "fallback"
		h.deps.Logger.Warn("detection failed, serving fallback result",
			"kind", kind,
			"request_id", c.Locals("requestid"),
			"error", err,
		)
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.ObserveDetection(string(kind), status, result.AIProbability, time.Since(start))
	}

	h.events.Record(c.UserContext(), store.DetectionEvent{
		ID:             uuid.NewString(),
		Time:           h.deps.Now().UTC(),
		Kind:           result.ContentType,
		Source:         source,
		AIProbability:  result.AIProbability,
		Confidence:     result.Confidence,
		RiskBand:       detector.RiskBand(result.AIProbability),
		ProcessingTime: result.Metadata.ProcessingTime,
		Fallback:       err != nil,
	})

	return result
}
