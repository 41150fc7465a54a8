package services

import (
	"testing"
)

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey("iphone 15", []string{"jumia", "amazon"})
	b := CacheKey("iphone 15", []string{"amazon", "jumia"})
	if a != b {
		t.Fatalf("platform order changed the key: %q vs %q", a, b)
	}
	if a != CacheKey("  IPHONE 15 ", []string{"jumia", "amazon"}) {
		t.Fatalf("query case/whitespace changed the key")
	}
}

func TestCacheKey_Discriminates(t *testing.T) {
	base := CacheKey("iphone 15", []string{"jumia", "amazon"})
	if base == CacheKey("iphone 15 pro", []string{"jumia", "amazon"}) {
		t.Fatalf("different queries share a key")
	}
	if base == CacheKey("iphone 15", []string{"jumia"}) {
		t.Fatalf("different platform sets share a key")
	}
}
