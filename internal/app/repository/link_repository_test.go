package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

func newTestRepo(t *testing.T) LinkRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("access sql db: %v", err)
	}
	// A fresh pool connection would see a fresh :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Link{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLinkRepository(db, nil)
}

func testLink(id, slug, topic string) *model.Link {
	return &model.Link{
		ID:          id,
		UserID:      "5b1c9a54-0000-4000-8000-000000000001",
		WorkspaceID: "5b1c9a54-0000-4000-8000-000000000002",
		Slug:        slug,
		Topic:       topic,
		LinkType:    model.LinkTypeCustom,
		IsPublic:    true,
		IsActive:    true,
	}
}

func TestLinkRepository_SlugTopicUniqueAmongLive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testLink("11111111-0000-4000-8000-000000000001", "acme", "resumes")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := repo.Create(ctx, testLink("11111111-0000-4000-8000-000000000002", "acme", "resumes"))
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken for live duplicate, got %v", err)
	}
}

func TestLinkRepository_SoftDeleteReleasesPair(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := testLink("22222222-0000-4000-8000-000000000001", "acme", "resumes")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SoftDelete(ctx, first.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// The pair is free again once its holder is soft-deleted.
	if err := repo.Create(ctx, testLink("22222222-0000-4000-8000-000000000002", "acme", "resumes")); err != nil {
		t.Fatalf("expected recreate after soft delete to succeed, got %v", err)
	}
}

func TestLinkRepository_SoftDeleteFlipsActive(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Link{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := NewLinkRepository(db, nil)
	ctx := context.Background()

	link := testLink("33333333-0000-4000-8000-000000000001", "acme", "resumes")
	if err := repo.Create(ctx, link); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SoftDelete(ctx, link.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := repo.GetByID(ctx, link.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected soft-deleted link to be invisible, got %v", err)
	}

	var row model.Link
	if err := db.Unscoped().First(&row, "id = ?", link.ID).Error; err != nil {
		t.Fatalf("load unscoped: %v", err)
	}
	if row.IsActive {
		t.Fatal("expected soft delete to flip is_active off")
	}
	if !row.DeletedAt.Valid {
		t.Fatal("expected deleted_at to be set")
	}
}
