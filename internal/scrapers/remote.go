package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// RemoteScraper talks to an out-of-process scraper service over HTTP. The
// actual DOM parsing and anti-bot machinery live behind that service; this
// side only sees the standardized listing shape.
type RemoteScraper struct {
	platformName string
	baseURL      string
	httpClient   *http.Client
}

func NewRemoteScraper(platformName, serviceBaseURL string, timeout time.Duration) *RemoteScraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteScraper{
		platformName: platformName,
		baseURL:      serviceBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (s *RemoteScraper) Search(ctx context.Context, query string, maxResults int) ([]types.RawListing, error) {
	endpoint := fmt.Sprintf("%s/search?platform=%s&q=%s&max_results=%s",
		s.baseURL,
		url.QueryEscape(s.platformName),
		url.QueryEscape(query),
		strconv.Itoa(maxResults),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlatformUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPlatformUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: scraper service returned %d", ErrPlatformUnreachable, resp.StatusCode)
	}

	var out struct {
		Listings []types.RawListing `json:"listings"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode listings: %v", ErrPlatformUnreachable, err)
	}
	return out.Listings, nil
}
