package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
)

const (
	// minSlugLength is the floor for accounts without the short-links plan.
	minSlugLength = 5
	maxSlugLength = 50

	bloomExpectedItems = 100_000
	bloomFalsePositive = 0.01
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reservedSlugs can never be claimed regardless of plan.
var reservedSlugs = map[string]struct{}{
	"admin": {}, "api": {}, "app": {}, "auth": {}, "billing": {},
	"dashboard": {}, "docs": {}, "files": {}, "folly": {}, "foldly": {},
	"health": {}, "healthz": {}, "help": {}, "links": {}, "login": {},
	"logout": {}, "metrics": {}, "settings": {}, "signup": {}, "static": {},
	"support": {}, "upload": {}, "uploads": {}, "workspace": {}, "www": {},
}

// NormalizeSlug lowercases and trims a slug or topic candidate.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Availability is the outcome of a slug or topic check.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// AvailabilityService answers slug/topic availability questions. A bloom
// filter seeded from existing slugs short-circuits definite misses so the
// per-keystroke checks rarely touch Postgres.
type AvailabilityService struct {
	links  repository.LinkRepository
	logger *zap.Logger

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewAvailabilityService returns an availability service with an empty
// filter; call Warm before serving traffic.
func NewAvailabilityService(links repository.LinkRepository, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		links:  links,
		logger: logger,
		filter: bloom.NewWithEstimates(bloomExpectedItems, bloomFalsePositive),
	}
}

// Warm seeds the bloom filter from every live slug in the database.
func (s *AvailabilityService) Warm(ctx context.Context) error {
	slugs, err := s.links.AllSlugs(ctx)
	if err != nil {
		return fmt.Errorf("availability: load slugs: %w", err)
	}

	s.mu.Lock()
	for _, slug := range slugs {
		s.filter.AddString(slug)
	}
	s.mu.Unlock()

	s.logger.Info("availability filter warmed", zap.Int("slugs", len(slugs)))
	return nil
}

// Observe records a newly claimed slug in the filter.
func (s *AvailabilityService) Observe(slug string) {
	s.mu.Lock()
	s.filter.AddString(slug)
	s.mu.Unlock()
}

// CheckSlug validates shape, reserved words, plan-gated length and
// uniqueness of a base slug candidate.
func (s *AvailabilityService) CheckSlug(ctx context.Context, actor Actor, raw string) (Availability, error) {
	slug := NormalizeSlug(raw)

	if reason := s.validateShape(slug); reason != "" {
		return Availability{Reason: reason}, nil
	}
	if len(slug) < minSlugLength && !model.PlanHasShortLinks(actor.Plan) {
		return Availability{Reason: "slugs under 5 characters require the pro plan"}, nil
	}

	s.mu.RLock()
	maybe := s.filter.TestString(slug)
	s.mu.RUnlock()
	if !maybe {
		// Definite miss: no live link uses this slug.
		return Availability{Available: true}, nil
	}

	taken, err := s.links.ExistsSlug(ctx, slug)
	if err != nil {
		return Availability{}, fmt.Errorf("availability: check slug: %w", err)
	}
	if taken {
		return Availability{Reason: "slug is already in use"}, nil
	}
	return Availability{Available: true}, nil
}

// CheckTopic validates a topic candidate under the given base slug.
func (s *AvailabilityService) CheckTopic(ctx context.Context, slug, rawTopic string) (Availability, error) {
	topic := NormalizeSlug(rawTopic)

	if reason := s.validateShape(topic); reason != "" {
		return Availability{Reason: reason}, nil
	}

	taken, err := s.links.ExistsSlugTopic(ctx, NormalizeSlug(slug), topic)
	if err != nil {
		return Availability{}, fmt.Errorf("availability: check topic: %w", err)
	}
	if taken {
		return Availability{Reason: "topic is already in use under this slug"}, nil
	}
	return Availability{Available: true}, nil
}

func (s *AvailabilityService) validateShape(slug string) string {
	if slug == "" {
		return "slug must not be empty"
	}
	if len(slug) > maxSlugLength {
		return "slug must be at most 50 characters"
	}
	if !slugPattern.MatchString(slug) {
		return "slug may only contain lowercase letters, digits and hyphens"
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return "slug is reserved"
	}
	return ""
}
