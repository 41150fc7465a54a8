package scrapers

import (
	"context"
	"errors"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// ErrPlatformUnreachable signals a transient platform failure (network, block,
// layout change). Zero matches is not an error: scrapers return an empty slice.
var ErrPlatformUnreachable = errors.New("platform unreachable")

// Scraper is the capability every platform adapter exposes. Implementations
// live behind this interface; the engine never sees platform-specific detail.
type Scraper interface {
	// Search returns standardized listings for the query, at most maxResults.
	Search(ctx context.Context, query string, maxResults int) ([]types.RawListing, error)
}
