package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/circuitbreaker"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/logger"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/report"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	server  *Server
	store   store.Store
	cache   *cache.RedisCache
	metrics *gocommon.Metrics
}

type envOption func(*Deps)

func withCache(t *testing.T) envOption {
	return func(d *Deps) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		d.Cache = cache.NewFromClient(client, time.Hour)
	}
}

func withDetector(det *detector.Detector) envOption {
	return func(d *Deps) { d.Detector = det }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := gocommon.NewMetrics(serviceName, reg)
	deps := Deps{
		Config: &config.Config{
			BodyLimit:                1 << 20,
			BaseURL:                  "http://detector.test",
			RateLimitDetectPerMinute: 100,
		},
		Detector: detector.New(
			detector.WithDelay(false, 0, 0),
			detector.WithSource(detector.NewSeededSource(7)),
		),
		Store: store.NewMemory(),
		Breakers: circuitbreaker.NewRegistry(circuitbreaker.Settings{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			RecoveryTimeout:  time.Minute,
		}, metrics.CircuitBreakerState),
		Metrics:  metrics,
		Gatherer: reg,
		Logger:   logger.Discard(),
		Now:      func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		server:  New(deps),
		store:   deps.Store,
		cache:   deps.Cache,
		metrics: metrics,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.server.App.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	return resp, body
}

func jsonRequest(method, path string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

const sampleText = "Furthermore the system produces consistent output. Moreover it keeps doing so across every request it receives."

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	var health gocommon.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if health.Status != "healthy" || health.ModelVersion != detector.ModelVersion {
		t.Errorf("unexpected health %+v", health)
	}

	resp, _ = env.do(t, httptest.NewRequest("GET", "/", nil))
	if resp.StatusCode != 200 {
		t.Errorf("root status = %d", resp.StatusCode)
	}
}

func TestDetect_Text(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText}))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d body=%s", resp.StatusCode, body)
	}

	var result detector.DetectionResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result.ContentType != detector.KindText {
		t.Errorf("contentType = %q, want text", result.ContentType)
	}
	if result.Metadata.WordCount == nil || *result.Metadata.WordCount != 16 {
		t.Errorf("wordCount = %v, want 16", result.Metadata.WordCount)
	}
	if result.AIProbability < 0 || result.AIProbability > 100 {
		t.Errorf("probability out of range: %v", result.AIProbability)
	}
	if result.IsFallback() {
		t.Error("unexpected fallback result")
	}

	if got := testutil.ToFloat64(env.metrics.DetectionTotal.WithLabelValues("text", "success")); got != 1 {
		t.Errorf("detection_total{success} = %v, want 1", got)
	}

	// Without Redis, events go straight to the store
	stats, err := env.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalDetections != 1 {
		t.Errorf("TotalDetections = %d, want 1", stats.TotalDetections)
	}
}

func TestDetect_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"unknown kind", jsonRequest("POST", "/v1/detect", DetectRequest{Content: "x", ContentType: "audio"})},
		{"malformed body", httptest.NewRequest("POST", "/v1/detect", strings.NewReader("{"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.req)
			if resp.StatusCode != 400 {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var e gocommon.ErrorResponse
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if e.Error.Code != "bad_request" {
				t.Errorf("code = %q, want bad_request", e.Error.Code)
			}
		})
	}
}

// brokenShuffle fails label selection but still supports the fallback draws.
type brokenShuffle struct{}

func (brokenShuffle) Float64() float64 { return 0.5 }
func (brokenShuffle) IntN(int) int     { panic("shuffle failed") }

func TestDetect_FallbackOnPanic(t *testing.T) {
	det := detector.New(detector.WithDelay(false, 0, 0), detector.WithSource(brokenShuffle{}))
	env := newTestEnv(t, withDetector(det))

	resp, body := env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText}))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result detector.DetectionResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !result.IsFallback() {
		t.Errorf("expected fallback result, got %+v", result.Analysis)
	}
	if result.AIProbability != 50 {
		t.Errorf("fallback probability = %v, want 50", result.AIProbability)
	}
	if got := testutil.ToFloat64(env.metrics.DetectionTotal.WithLabelValues("text", "fallback")); got != 1 {
		t.Errorf("detection_total{fallback} = %v, want 1", got)
	}

	stats, _ := env.store.Stats(context.Background())
	if stats.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", stats.Fallbacks)
	}
}

func TestDetect_DelayBoundedByWriteTimeout(t *testing.T) {
	det := detector.New(
		detector.WithDelay(true, 5*time.Second, 5*time.Second),
		detector.WithSource(detector.NewSeededSource(7)),
	)
	env := newTestEnv(t, withDetector(det), func(d *Deps) {
		d.Config.WriteTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	resp, body := env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText}))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("request took %v, want it cut short by the write timeout", elapsed)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result detector.DetectionResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !result.IsFallback() {
		t.Errorf("expected fallback result after timeout, got %+v", result.Analysis)
	}
}

func multipartUpload(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest("POST", "/v1/detect/file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestDetectFile(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, multipartUpload(t, "essay.txt", []byte(sampleText)))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d body=%s", resp.StatusCode, body)
	}

	var out FileDetectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.File.Kind != detector.KindText || out.File.MimeType != "text/plain" {
		t.Errorf("unexpected file view %+v", out.File)
	}
	if out.File.Preview != sampleText {
		t.Errorf("preview = %q", out.File.Preview)
	}
	if out.Results == nil || out.Results.ContentType != detector.KindText {
		t.Errorf("unexpected results %+v", out.Results)
	}
}

func TestDetectFile_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"missing field", httptest.NewRequest("POST", "/v1/detect/file", nil), 400},
		{"empty file", multipartUpload(t, "empty.txt", nil), 400},
		{"unsupported type", multipartUpload(t, "archive.zip", []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00")), 415},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.req)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d body=%s", resp.StatusCode, tt.wantStatus, body)
			}
		})
	}
}

func sampleResult() *detector.DetectionResult {
	words := 17
	return &detector.DetectionResult{
		AIProbability: 81.25,
		Confidence:    88.5,
		ContentType:   detector.KindText,
		Analysis: detector.Analysis{
			Patterns:       []string{"Repetitive sentence structures"},
			Indicators:     []string{"Perplexity score: Low"},
			Recommendation: "High likelihood of AI generation.",
		},
		Metadata: detector.Metadata{
			ProcessingTime: 1.5,
			ModelVersion:   detector.ModelVersion,
			Algorithm:      "Neural Pattern Recognition (NPR)",
			WordCount:      &words,
		},
	}
}

func createReport(t *testing.T, env *testEnv) CreateReportResponse {
	t.Helper()
	resp, body := env.do(t, jsonRequest("POST", "/v1/reports", sampleResult()))
	if resp.StatusCode != 201 {
		t.Fatalf("create status = %d body=%s", resp.StatusCode, body)
	}
	var out CreateReportResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

func TestReports_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	created := createReport(t, env)

	wantName := "ai-detection-report-1709294400000.json"
	if created.FileName != wantName {
		t.Errorf("fileName = %q, want %q", created.FileName, wantName)
	}
	if created.ShareURL != "http://detector.test/v1/reports/"+created.ID {
		t.Errorf("shareUrl = %q", created.ShareURL)
	}
	if !strings.HasPrefix(created.ShareText, "AI Content Detection Results: 81.3% AI probability") {
		t.Errorf("shareText = %q", created.ShareText)
	}
	if created.Report.Summary != "AI Content Detection Report - 81.3% AI Probability" {
		t.Errorf("summary = %q", created.Report.Summary)
	}
	if got := testutil.ToFloat64(env.metrics.ReportsExported); got != 1 {
		t.Errorf("reports_exported_total = %v, want 1", got)
	}

	want, err := report.Marshal(report.New(sampleResult(), fixedNow))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	resp, body := env.do(t, httptest.NewRequest("GET", "/v1/reports/"+created.ID, nil))
	if resp.StatusCode != 200 {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if !bytes.Equal(body, want) {
		t.Errorf("payload mismatch:\n got %s\nwant %s", body, want)
	}

	resp, body = env.do(t, httptest.NewRequest("GET", "/v1/reports/"+created.ID+"/download", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="`+wantName+`"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.Equal(body, want) {
		t.Error("download payload differs from stored payload")
	}

	resp, body = env.do(t, httptest.NewRequest("GET", "/v1/reports/"+created.ID+"/qr?size=150", nil))
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("qr status = %d type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("qr body is not a PNG")
	}
}

func TestReports_Errors(t *testing.T) {
	env := newTestEnv(t)

	bad := sampleResult()
	bad.ContentType = "audio"
	tooLikely := sampleResult()
	tooLikely.AIProbability = 150
	negativeConfidence := sampleResult()
	negativeConfidence.Confidence = -1

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"invalid id", httptest.NewRequest("GET", "/v1/reports/not-a-uuid", nil), 400},
		{"unknown id", httptest.NewRequest("GET", "/v1/reports/6f1c2f3e-8a7b-4b8e-9a51-0c2d7a1e4b10", nil), 404},
		{"unknown qr", httptest.NewRequest("GET", "/v1/reports/6f1c2f3e-8a7b-4b8e-9a51-0c2d7a1e4b10/qr", nil), 404},
		{"bad content type", jsonRequest("POST", "/v1/reports", bad), 400},
		{"malformed body", httptest.NewRequest("POST", "/v1/reports", strings.NewReader("[")), 400},
		{"probability above 100", jsonRequest("POST", "/v1/reports", tooLikely), 400},
		{"negative confidence", jsonRequest("POST", "/v1/reports", negativeConfidence), 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, tt.req)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestReports_CachedPayload(t *testing.T) {
	env := newTestEnv(t, withCache(t))
	created := createReport(t, env)

	cached, err := env.cache.GetReport(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("report was not cached: %v", err)
	}
	stored, err := env.store.GetReport(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("report was not stored: %v", err)
	}
	if !bytes.Equal(cached, stored.Payload) {
		t.Error("cached payload differs from stored payload")
	}
}

func TestDetect_EventsGoToStreamWithCache(t *testing.T) {
	env := newTestEnv(t, withCache(t))

	env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText}))

	n, err := env.cache.StreamLength(context.Background())
	if err != nil {
		t.Fatalf("StreamLength failed: %v", err)
	}
	if n != 1 {
		t.Errorf("stream length = %d, want 1", n)
	}
	stats, _ := env.store.Stats(context.Background())
	if stats.TotalDetections != 0 {
		t.Errorf("store should be untouched until the worker flushes, got %d", stats.TotalDetections)
	}
}

func TestDetect_RateLimited(t *testing.T) {
	env := newTestEnv(t, withCache(t), func(d *Deps) { d.Config.RateLimitDetectPerMinute = 2 })

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: "hi"}))
		if resp.StatusCode != 200 {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}

	resp, body := env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: "hi"}))
	if resp.StatusCode != 429 {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	var e gocommon.ErrorResponse
	json.Unmarshal(body, &e)
	if e.Error.Code != "rate_limited" {
		t.Errorf("code = %q, want rate_limited", e.Error.Code)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	for _, kind := range []string{"text", "image", "image"} {
		env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText, ContentType: kind}))
	}

	resp, body := env.do(t, httptest.NewRequest("GET", "/v1/stats", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var stats store.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stats.TotalDetections != 3 || len(stats.ByKind) != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestStats_BreakerOpen(t *testing.T) {
	env := newTestEnv(t)
	env.server.deps.Breakers.Get(backendStore).ForceOpen()

	resp, _ := env.do(t, httptest.NewRequest("GET", "/v1/stats", nil))
	if resp.StatusCode != 503 {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}

	// Detection still succeeds while persistence is skipped
	resp, _ = env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText}))
	if resp.StatusCode != 200 {
		t.Errorf("detect status = %d, want 200", resp.StatusCode)
	}
}

func TestReady(t *testing.T) {
	env := newTestEnv(t, withCache(t))

	resp, body := env.do(t, httptest.NewRequest("GET", "/ready", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d body=%s", resp.StatusCode, body)
	}
	var ready gocommon.ReadyResponse
	json.Unmarshal(body, &ready)
	if ready.Backends["store"] != "healthy" || ready.Backends["cache"] != "healthy" {
		t.Errorf("unexpected backends %v", ready.Backends)
	}

	env.server.Drain()
	resp, _ = env.do(t, httptest.NewRequest("GET", "/ready", nil))
	if resp.StatusCode != 503 {
		t.Errorf("draining status = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, jsonRequest("POST", "/v1/detect", DetectRequest{Content: sampleText}))

	resp, body := env.do(t, httptest.NewRequest("GET", "/metrics", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, name := range []string{"detector_detection_total", "http_request_duration_seconds", "detector_backend_circuit_state"} {
		if !bytes.Contains(body, []byte(name)) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
