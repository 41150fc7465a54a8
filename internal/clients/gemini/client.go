package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// ErrUnidentifiable is returned when the model cannot make sense of the image
// (corrupt input, or a response with no usable product information).
var ErrUnidentifiable = errors.New("could not identify product from image")

type Client interface {
	IdentifyProduct(ctx context.Context, image []byte, mimeType string) (*types.ProductInfo, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	timeoutSec := 60
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

const identifyPrompt = `Analyze this product image and respond with JSON only:
{
  "product_name": "...",
  "brand": "...",
  "category": "...",
  "features": ["...", "..."],
  "search_keywords": ["...", "..."],
  "confidence": "high/medium/low"
}
If you cannot identify the product clearly, return confidence as "low".`

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *client) IdentifyProduct(ctx context.Context, image []byte, mimeType string) (*types.ProductInfo, error) {
	if len(image) == 0 {
		return nil, ErrUnidentifiable
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	var req generateRequest
	req.Contents = make([]struct {
		Parts []generatePart `json:"parts"`
	}, 1)
	req.Contents[0].Parts = []generatePart{
		{Text: identifyPrompt},
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", c.model, c.apiKey)
	body, err := c.call(ctx, path, req)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrUnidentifiable
	}

	info, err := parseProductInfo(resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	c.log.Info("Product identified", "product_name", info.ProductName, "confidence", info.Confidence)
	return info, nil
}

func (c *client) call(ctx context.Context, path string, reqBody any) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitterSleep(time.Duration(attempt) * time.Second)):
			}
		}
		body, err := c.doOnce(ctx, path, reqBody)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryableErr(err) || ctx.Err() != nil {
			return nil, err
		}
		c.log.Warn("Gemini call failed, retrying", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *client) doOnce(ctx context.Context, path string, reqBody any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var he *httpError
	if errors.As(err, &he) {
		if he.StatusCode == 408 || he.StatusCode == 429 {
			return true
		}
		return he.StatusCode >= 500 && he.StatusCode <= 599
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*2*delta
	return time.Duration(v * float64(time.Second))
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseProductInfo extracts the JSON object from the model's text reply. The
// model sometimes wraps it in prose or code fences, so grab the outermost
// braces rather than decoding the whole reply.
func parseProductInfo(text string) (*types.ProductInfo, error) {
	block := jsonBlockRe.FindString(text)
	if block == "" {
		return nil, ErrUnidentifiable
	}
	var raw struct {
		ProductName    string   `json:"product_name"`
		Brand          string   `json:"brand"`
		Category       string   `json:"category"`
		Features       []string `json:"features"`
		SearchKeywords []string `json:"search_keywords"`
		Confidence     string   `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnidentifiable, err)
	}
	if strings.TrimSpace(raw.ProductName) == "" {
		return nil, ErrUnidentifiable
	}
	return &types.ProductInfo{
		ProductName:    strings.TrimSpace(raw.ProductName),
		Brand:          strings.TrimSpace(raw.Brand),
		Category:       strings.TrimSpace(raw.Category),
		Features:       raw.Features,
		SearchKeywords: raw.SearchKeywords,
		Confidence:     confidenceScore(raw.Confidence),
	}, nil
}

func confidenceScore(label string) float64 {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		return 0.9
	case "medium":
		return 0.6
	default:
		return 0.3
	}
}
