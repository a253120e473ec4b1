package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/auth"
)

func publicRepoWith(link *model.Link) *mockLinkRepository {
	return &mockLinkRepository{
		getBySlugTopicFn: func(ctx context.Context, slug, topic string) (*model.Link, error) {
			if link != nil && link.Slug == slug && link.Topic == topic {
				return link, nil
			}
			return nil, repository.ErrLinkNotFound
		},
	}
}

func TestPublicService_Resolve_NotFound(t *testing.T) {
	svc := NewPublicService(publicRepoWith(nil), nil, nil, nil)

	_, err := svc.Resolve(context.Background(), ResolveInput{Slug: "missing"})
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestPublicService_Resolve_PolicyGates(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name string
		link *model.Link
		want error
	}{
		{
			name: "private",
			link: &model.Link{Slug: "acme", IsPublic: false, IsActive: true},
			want: ErrLinkPrivate,
		},
		{
			name: "inactive",
			link: &model.Link{Slug: "acme", IsPublic: true, IsActive: false},
			want: ErrLinkInactive,
		},
		{
			name: "expired",
			link: &model.Link{Slug: "acme", IsPublic: true, IsActive: true, ExpiresAt: &past},
			want: ErrLinkExpired,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewPublicService(publicRepoWith(tc.link), nil, nil, nil)
			_, err := svc.Resolve(context.Background(), ResolveInput{Slug: "acme"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPublicService_Resolve_Password(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	link := &model.Link{
		Slug: "acme", IsPublic: true, IsActive: true,
		RequirePassword: true, PasswordHash: &hash,
	}
	svc := NewPublicService(publicRepoWith(link), nil, nil, nil)

	_, err = svc.Resolve(context.Background(), ResolveInput{Slug: "acme"})
	if !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}

	_, err = svc.Resolve(context.Background(), ResolveInput{Slug: "acme", Password: "wrong"})
	if !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("expected ErrPasswordIncorrect, got %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), ResolveInput{Slug: "acme", Password: "hunter2"})
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if resolved.Slug != "acme" {
		t.Fatalf("unexpected link %q", resolved.Slug)
	}
}

func TestPublicService_Resolve_EmailRequired(t *testing.T) {
	link := &model.Link{Slug: "acme", IsPublic: true, IsActive: true, RequireEmail: true}
	svc := NewPublicService(publicRepoWith(link), nil, nil, nil)

	_, err := svc.Resolve(context.Background(), ResolveInput{Slug: "acme"})
	if !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}

	if _, err := svc.Resolve(context.Background(), ResolveInput{Slug: "acme", Email: "a@b.co"}); err != nil {
		t.Fatalf("expected resolve with email to succeed, got %v", err)
	}
}

func TestPublicService_AcceptUpload_Constraints(t *testing.T) {
	link := &model.Link{
		Slug: "acme", IsPublic: true, IsActive: true,
		MaxFiles: 2, MaxFileSizeBytes: 1024,
		AllowedFileTypes: "application/pdf,image/png",
	}
	svc := NewPublicService(publicRepoWith(link), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.AcceptUpload(ctx, "acme", "", "", []UploadFile{
		{Name: "a.pdf", SizeBytes: 10, ContentType: "application/pdf"},
		{Name: "b.pdf", SizeBytes: 10, ContentType: "application/pdf"},
		{Name: "c.pdf", SizeBytes: 10, ContentType: "application/pdf"},
	})
	if !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("expected ErrTooManyFiles, got %v", err)
	}

	_, err = svc.AcceptUpload(ctx, "acme", "", "", []UploadFile{
		{Name: "big.pdf", SizeBytes: 4096, ContentType: "application/pdf"},
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	_, err = svc.AcceptUpload(ctx, "acme", "", "", []UploadFile{
		{Name: "movie.mp4", SizeBytes: 10, ContentType: "video/mp4"},
	})
	if !errors.Is(err, ErrTypeNotAllowed) {
		t.Fatalf("expected ErrTypeNotAllowed, got %v", err)
	}

	accepted, err := svc.AcceptUpload(ctx, "acme", "", "", []UploadFile{
		{Name: "cv.pdf", SizeBytes: 512, ContentType: "application/pdf"},
		{Name: "photo.png", SizeBytes: 256, ContentType: "image/png"},
	})
	if err != nil {
		t.Fatalf("expected upload to be accepted, got %v", err)
	}
	if accepted != 2 {
		t.Fatalf("expected 2 accepted files, got %d", accepted)
	}
}
