package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/api"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

var errRateLimited = errors.New("rate limited")

// KindMix is a weighted choice over content kinds.
type KindMix struct {
	kinds   []detector.ContentKind
	weights []int
	total   int
}

// ParseKindMix reads "text=6,document=3,image=1". A bare kind has weight 1.
func ParseKindMix(s string) (KindMix, error) {
	var m KindMix
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, weight, found := strings.Cut(part, "=")
		kind, err := detector.ParseContentKind(name)
		if err != nil {
			return KindMix{}, err
		}
		w := 1
		if found {
			w, err = strconv.Atoi(weight)
			if err != nil || w < 0 {
				return KindMix{}, fmt.Errorf("invalid weight %q for %s", weight, kind)
			}
		}
		if w == 0 {
			continue
		}
		m.kinds = append(m.kinds, kind)
		m.weights = append(m.weights, w)
		m.total += w
	}
	if m.total == 0 {
		return KindMix{}, errors.New("kind mix must give at least one kind a positive weight")
	}
	return m, nil
}

// Pick maps r in [0, total) onto a kind.
func (m KindMix) Pick(r int) detector.ContentKind {
	for i, w := range m.weights {
		if r < w {
			return m.kinds[i]
		}
		r -= w
	}
	return m.kinds[len(m.kinds)-1]
}

func (m KindMix) String() string {
	parts := make([]string, len(m.kinds))
	for i, k := range m.kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, m.weights[i])
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Client sends detection requests to the API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	mix        KindMix
}

// NewClient creates a new detector API client
func NewClient(baseURL, token string, mix KindMix) *Client {
	transport := &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			// The simulated inference delay alone can take 3s
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		mix:     mix,
	}
}

// RequestResult holds the result of a single request
type RequestResult struct {
	Kind          detector.ContentKind
	Latency       time.Duration
	Success       bool
	Timeout       bool
	Fallback      bool
	AIProbability float64
	StatusCode    int
	Error         error
}

// SendRequest posts one sample of a randomly picked kind to /v1/detect.
func (c *Client) SendRequest(ctx context.Context) RequestResult {
	kind := c.mix.Pick(rand.IntN(c.mix.total))
	result := RequestResult{Kind: kind}

	body, err := json.Marshal(api.DetectRequest{
		Content:     sampleFor(kind),
		ContentType: string(kind),
	})
	if err != nil {
		result.Error = err
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", bytes.NewReader(body))
	if err != nil {
		result.Error = err
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	result.Latency = time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Timeout = true
		}
		result.Error = err
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err
		return result
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var dr detector.DetectionResult
		if err := json.Unmarshal(respBody, &dr); err != nil {
			result.Error = fmt.Errorf("decode response: %w", err)
			return result
		}
		result.Success = true
		result.Fallback = dr.IsFallback()
		result.AIProbability = dr.AIProbability
	case resp.StatusCode == http.StatusTooManyRequests:
		result.Error = errRateLimited
	case resp.StatusCode >= 500:
		result.Error = fmt.Errorf("server error: %d", resp.StatusCode)
	default:
		result.Error = fmt.Errorf("client error: %d - %s", resp.StatusCode, string(respBody))
	}

	return result
}

// Samples span the feature space: formal connectors, personal markers,
// short and long texts, and repetitive low-diversity prose.
var textSamples = []string{
	"Hello, I need help with my account settings. Can you assist me?",
	"I believe the weekend trip was the best idea we had all year, personally I would go again.",
	"Furthermore, the proposed framework demonstrates significant improvements across all evaluated benchmarks. Moreover, the methodology is robust to variations in the input distribution and scales to large datasets without loss of accuracy. Additionally, the results indicate that the approach generalizes well beyond the training domain.",
	"The cat sat. The cat sat again. The cat sat on the mat. The cat sat on the mat again and again.",
	"In my opinion the new library is fine but the documentation could be clearer about error handling and retries.",
	"Our team is evaluating different cloud providers for our infrastructure. We need to consider factors like cost, scalability, and the learning curve for our developers. Currently we run on one provider but are considering a move. What are the key differences we should be aware of before committing to a migration plan?",
}

var documentSamples = []string{
	`This is mock extracted text from the PDF document "quarterly-report.pdf". The extracted text would then be analyzed for AI-generated content patterns.`,
	"Executive summary. Furthermore, revenue grew steadily across all regions. Moreover, operating costs declined as a share of revenue. Additionally, the outlook for the coming year remains positive.",
}

var imageSamples = []string{
	"Image analysis: 1024x768 PNG image",
	"Image analysis: 512x512 JPEG image",
	"Image file: scan.webp",
}

func sampleFor(kind detector.ContentKind) string {
	var pool []string
	switch kind {
	case detector.KindDocument:
		pool = documentSamples
	case detector.KindImage:
		pool = imageSamples
	default:
		pool = textSamples
	}
	return pool[rand.IntN(len(pool))]
}
