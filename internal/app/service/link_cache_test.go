package service

import (
	"strings"
	"testing"
)

func TestLinkCacheKeyPattern_CoversAllTopicsOfSlug(t *testing.T) {
	prefix := strings.TrimSuffix(linkCacheKeyPattern("acme"), "*")

	for _, key := range []string{
		linkCacheKey("acme", ""),
		linkCacheKey("acme", "resumes"),
		linkCacheKey("acme", "q3-reports"),
	} {
		if !strings.HasPrefix(key, prefix) {
			t.Fatalf("expected %q to match the slug pattern", key)
		}
	}

	if strings.HasPrefix(linkCacheKey("acme-corp", "resumes"), prefix) {
		t.Fatal("pattern must not reach into other slugs")
	}
}
