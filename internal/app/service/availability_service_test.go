package service

import (
	"context"
	"testing"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

func TestAvailabilityService_CheckSlug_Shape(t *testing.T) {
	svc := NewAvailabilityService(&mockLinkRepository{}, nil)
	actor := Actor{UserID: "user-1"}

	cases := []struct {
		name string
		slug string
	}{
		{"empty", ""},
		{"underscore", "acme_studio"},
		{"spaces", "acme studio"},
		{"reserved", "admin"},
		{"too long", "a-very-long-slug-that-keeps-going-and-going-and-going-past-fifty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.CheckSlug(context.Background(), actor, tc.slug)
			if err != nil {
				t.Fatalf("CheckSlug error: %v", err)
			}
			if result.Available {
				t.Fatalf("expected %q to be unavailable", tc.slug)
			}
			if result.Reason == "" {
				t.Fatal("expected a reason")
			}
		})
	}
}

func TestAvailabilityService_CheckSlug_PlanGatedLength(t *testing.T) {
	svc := NewAvailabilityService(&mockLinkRepository{}, nil)

	result, err := svc.CheckSlug(context.Background(), Actor{UserID: "u", Plan: model.PlanFree}, "abc")
	if err != nil {
		t.Fatalf("CheckSlug error: %v", err)
	}
	if result.Available {
		t.Fatal("expected short slug to be gated for free plan")
	}

	result, err = svc.CheckSlug(context.Background(), Actor{UserID: "u", Plan: model.PlanPro}, "abc")
	if err != nil {
		t.Fatalf("CheckSlug error: %v", err)
	}
	if !result.Available {
		t.Fatalf("expected short slug to pass for pro plan, got reason %q", result.Reason)
	}
}

func TestAvailabilityService_CheckSlug_BloomShortCircuit(t *testing.T) {
	dbHits := 0
	repo := &mockLinkRepository{
		existsSlugFn: func(ctx context.Context, slug string) (bool, error) {
			dbHits++
			return true, nil
		},
	}
	svc := NewAvailabilityService(repo, nil)
	actor := Actor{UserID: "user-1"}

	// Never observed, so the filter reports a definite miss.
	result, err := svc.CheckSlug(context.Background(), actor, "fresh-slug")
	if err != nil {
		t.Fatalf("CheckSlug error: %v", err)
	}
	if !result.Available {
		t.Fatalf("expected fresh slug to be available, got %q", result.Reason)
	}
	if dbHits != 0 {
		t.Fatalf("expected no database hit on a filter miss, got %d", dbHits)
	}

	svc.Observe("taken-slug")
	result, err = svc.CheckSlug(context.Background(), actor, "taken-slug")
	if err != nil {
		t.Fatalf("CheckSlug error: %v", err)
	}
	if result.Available {
		t.Fatal("expected observed slug to be reported taken")
	}
	if dbHits != 1 {
		t.Fatalf("expected the filter hit to be confirmed against the database, got %d hits", dbHits)
	}
}

func TestAvailabilityService_Warm(t *testing.T) {
	repo := &mockLinkRepository{
		allSlugsFn: func(ctx context.Context) ([]string, error) {
			return []string{"acme", "globex"}, nil
		},
		existsSlugFn: func(ctx context.Context, slug string) (bool, error) {
			return true, nil
		},
	}
	svc := NewAvailabilityService(repo, nil)
	if err := svc.Warm(context.Background()); err != nil {
		t.Fatalf("Warm error: %v", err)
	}

	result, err := svc.CheckSlug(context.Background(), Actor{UserID: "u"}, "globex")
	if err != nil {
		t.Fatalf("CheckSlug error: %v", err)
	}
	if result.Available {
		t.Fatal("expected warmed slug to be reported taken")
	}
}

func TestAvailabilityService_CheckTopic(t *testing.T) {
	repo := &mockLinkRepository{
		existsSlugTopicFn: func(ctx context.Context, slug, topic string) (bool, error) {
			return slug == "acme" && topic == "resumes", nil
		},
	}
	svc := NewAvailabilityService(repo, nil)

	result, err := svc.CheckTopic(context.Background(), "acme", "resumes")
	if err != nil {
		t.Fatalf("CheckTopic error: %v", err)
	}
	if result.Available {
		t.Fatal("expected taken topic to be unavailable")
	}

	result, err = svc.CheckTopic(context.Background(), "acme", "portfolio")
	if err != nil {
		t.Fatalf("CheckTopic error: %v", err)
	}
	if !result.Available {
		t.Fatalf("expected free topic to be available, got %q", result.Reason)
	}
}
