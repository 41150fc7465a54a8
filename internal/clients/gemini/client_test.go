package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
)

func TestParseProductInfo_PlainJSON(t *testing.T) {
	info, err := parseProductInfo(`{"product_name": "iPhone 15 Pro", "brand": "Apple", "category": "Electronics", "features": ["256GB", "Titanium"], "confidence": "high"}`)
	if err != nil {
		t.Fatalf("parseProductInfo: %v", err)
	}
	if info.ProductName != "iPhone 15 Pro" || info.Brand != "Apple" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9", info.Confidence)
	}
}

func TestParseProductInfo_FencedJSON(t *testing.T) {
	text := "Here is the analysis:\n```json\n{\"product_name\": \"Galaxy S24\", \"brand\": \"Samsung\", \"confidence\": \"medium\"}\n```\n"
	info, err := parseProductInfo(text)
	if err != nil {
		t.Fatalf("parseProductInfo: %v", err)
	}
	if info.ProductName != "Galaxy S24" {
		t.Fatalf("unexpected product name: %q", info.ProductName)
	}
	if info.Confidence != 0.6 {
		t.Fatalf("confidence = %v, want 0.6", info.Confidence)
	}
}

func TestParseProductInfo_Unidentifiable(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"no json", "I cannot see a product in this image."},
		{"empty name", `{"product_name": "", "confidence": "low"}`},
		{"broken json", `{"product_name": "x",`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseProductInfo(tc.text); !errors.Is(err, ErrUnidentifiable) {
				t.Fatalf("expected ErrUnidentifiable, got %v", err)
			}
		})
	}
}

func TestConfidenceScore(t *testing.T) {
	cases := []struct {
		label string
		want  float64
	}{
		{"high", 0.9},
		{"High", 0.9},
		{"medium", 0.6},
		{"low", 0.3},
		{"", 0.3},
		{"garbage", 0.3},
	}
	for _, tc := range cases {
		if got := confidenceScore(tc.label); got != tc.want {
			t.Fatalf("confidenceScore(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestIsRetryableErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &httpError{StatusCode: 429}, true},
		{"server error", &httpError{StatusCode: 503}, true},
		{"bad request", &httpError{StatusCode: 400}, false},
		{"unauthorized", &httpError{StatusCode: 401}, false},
		{"plain error", errors.New("x"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableErr(tc.err); got != tc.want {
				t.Fatalf("isRetryableErr = %v, want %v", got, tc.want)
			}
		})
	}
}

func newTestClient(t *testing.T, baseURL string) *client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return &client{
		log:        log.With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     "test-key",
		model:      "gemini-1.5-flash",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxRetries: 0,
	}
}

func TestIdentifyProduct_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "{\"product_name\": \"AirPods Pro\", \"brand\": \"Apple\", \"confidence\": \"high\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	info, err := c.IdentifyProduct(context.Background(), []byte("fake-image"), "image/png")
	if err != nil {
		t.Fatalf("IdentifyProduct: %v", err)
	}
	if info.ProductName != "AirPods Pro" || info.Brand != "Apple" || info.Confidence != 0.9 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestIdentifyProduct_EmptyImage(t *testing.T) {
	c := newTestClient(t, "http://unused")
	if _, err := c.IdentifyProduct(context.Background(), nil, ""); !errors.Is(err, ErrUnidentifiable) {
		t.Fatalf("expected ErrUnidentifiable, got %v", err)
	}
}

func TestIdentifyProduct_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.IdentifyProduct(context.Background(), []byte("img"), "image/jpeg"); !errors.Is(err, ErrUnidentifiable) {
		t.Fatalf("expected ErrUnidentifiable, got %v", err)
	}
}
