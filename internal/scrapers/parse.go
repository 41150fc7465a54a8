package scrapers

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceCleanRe = regexp.MustCompile(`[^\d.,]`)
	ratingRe     = regexp.MustCompile(`(\d+\.?\d*)`)
	digitsRe     = regexp.MustCompile(`[^\d]`)
)

// ParsePrice extracts a numeric price from scraped text like "KSh 1,299.00".
// Unparseable input yields 0, which the aggregation layer drops as malformed.
func ParsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}
	cleaned := priceCleanRe.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseRating extracts the leading numeric rating from text like "4.5 out of 5".
func ParseRating(raw string) *float64 {
	if raw == "" {
		return nil
	}
	m := ratingRe.FindString(raw)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseInt extracts an integer from text like "1,234 reviews".
func ParseInt(raw string) *int {
	if raw == "" {
		return nil
	}
	cleaned := digitsRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &v
}
