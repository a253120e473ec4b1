package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
)

type mockLinkRepository struct {
	createFn            func(ctx context.Context, link *model.Link) error
	getByIDFn           func(ctx context.Context, id string) (*model.Link, error)
	getBySlugTopicFn    func(ctx context.Context, slug, topic string) (*model.Link, error)
	getBaseFn           func(ctx context.Context, userID string) (*model.Link, error)
	listFn              func(ctx context.Context, userID string, limit, offset int) ([]model.Link, error)
	updateFn            func(ctx context.Context, link *model.Link) error
	updateCascadeFn     func(ctx context.Context, link *model.Link, oldSlug string) (int64, error)
	softDeleteFn        func(ctx context.Context, id string) error
	softDeleteManyFn    func(ctx context.Context, userID string, ids []string) (int64, error)
	hardDeleteFn        func(ctx context.Context, id string) error
	existsSlugFn        func(ctx context.Context, slug string) (bool, error)
	existsSlugTopicFn   func(ctx context.Context, slug, topic string) (bool, error)
	allSlugsFn          func(ctx context.Context) ([]string, error)
	applyStatsFn        func(ctx context.Context, linkID string, files int, bytes int64, at time.Time) error
	deactivateExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id string) (*model.Link, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetBySlugTopic(ctx context.Context, slug, topic string) (*model.Link, error) {
	if m.getBySlugTopicFn != nil {
		return m.getBySlugTopicFn(ctx, slug, topic)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetBaseByUserID(ctx context.Context, userID string) (*model.Link, error) {
	if m.getBaseFn != nil {
		return m.getBaseFn(ctx, userID)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) Update(ctx context.Context, link *model.Link) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) UpdateWithCascade(ctx context.Context, link *model.Link, oldSlug string) (int64, error) {
	if m.updateCascadeFn != nil {
		return m.updateCascadeFn(ctx, link, oldSlug)
	}
	return 0, nil
}

func (m *mockLinkRepository) SoftDelete(ctx context.Context, id string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

func (m *mockLinkRepository) SoftDeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	if m.softDeleteManyFn != nil {
		return m.softDeleteManyFn(ctx, userID, ids)
	}
	return 0, nil
}

func (m *mockLinkRepository) HardDelete(ctx context.Context, id string) error {
	if m.hardDeleteFn != nil {
		return m.hardDeleteFn(ctx, id)
	}
	return nil
}

func (m *mockLinkRepository) ExistsSlug(ctx context.Context, slug string) (bool, error) {
	if m.existsSlugFn != nil {
		return m.existsSlugFn(ctx, slug)
	}
	return false, nil
}

func (m *mockLinkRepository) ExistsSlugTopic(ctx context.Context, slug, topic string) (bool, error) {
	if m.existsSlugTopicFn != nil {
		return m.existsSlugTopicFn(ctx, slug, topic)
	}
	return false, nil
}

func (m *mockLinkRepository) AllSlugs(ctx context.Context) ([]string, error) {
	if m.allSlugsFn != nil {
		return m.allSlugsFn(ctx)
	}
	return nil, nil
}

func (m *mockLinkRepository) ApplyUploadStats(ctx context.Context, linkID string, files int, bytes int64, at time.Time) error {
	if m.applyStatsFn != nil {
		return m.applyStatsFn(ctx, linkID, files, bytes, at)
	}
	return nil
}

func (m *mockLinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deactivateExpiredFn != nil {
		return m.deactivateExpiredFn(ctx, now)
	}
	return 0, nil
}

type mockFolderRepository struct {
	getFn func(ctx context.Context, id string) (*model.Folder, error)
}

func (m *mockFolderRepository) GetByID(ctx context.Context, id string) (*model.Folder, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrFolderNotFound
}

func (m *mockFolderRepository) Create(ctx context.Context, folder *model.Folder) error {
	return nil
}

func newTestService(links repository.LinkRepository, folders repository.FolderRepository) LinkService {
	return NewLinkService(LinkServiceDeps{
		Links:        links,
		Folders:      folders,
		Availability: NewAvailabilityService(links, nil),
	})
}

func TestLinkService_CreateBaseLink(t *testing.T) {
	var created *model.Link
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			created = link
			return nil
		},
	}

	svc := newTestService(repo, nil)
	link, err := svc.CreateLink(context.Background(), Actor{UserID: "user-1"}, CreateLinkInput{
		LinkType:    model.LinkTypeBase,
		WorkspaceID: "ws-1",
		Slug:        "Acme-Studio",
		IsPublic:    true,
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected link to reach the repository")
	}
	if link.Slug != "acme-studio" {
		t.Fatalf("expected normalized slug, got %q", link.Slug)
	}
	if link.Topic != "" {
		t.Fatalf("expected empty topic on base link, got %q", link.Topic)
	}
	if !link.IsActive {
		t.Fatal("expected new link to be active")
	}
}

func TestLinkService_CreateBaseLink_SecondBaseRejected(t *testing.T) {
	repo := &mockLinkRepository{
		getBaseFn: func(ctx context.Context, userID string) (*model.Link, error) {
			return &model.Link{ID: "existing", UserID: userID, LinkType: model.LinkTypeBase}, nil
		},
	}

	svc := newTestService(repo, nil)
	_, err := svc.CreateLink(context.Background(), Actor{UserID: "user-1"}, CreateLinkInput{
		LinkType:    model.LinkTypeBase,
		WorkspaceID: "ws-1",
		Slug:        "second",
	})
	if !errors.Is(err, ErrBaseLinkExists) {
		t.Fatalf("expected ErrBaseLinkExists, got %v", err)
	}
}

func TestLinkService_CreateCustomLink_InheritsBaseSlug(t *testing.T) {
	repo := &mockLinkRepository{
		getBaseFn: func(ctx context.Context, userID string) (*model.Link, error) {
			return &model.Link{ID: "base", UserID: userID, Slug: "acme", LinkType: model.LinkTypeBase}, nil
		},
	}

	svc := newTestService(repo, nil)
	link, err := svc.CreateLink(context.Background(), Actor{UserID: "user-1"}, CreateLinkInput{
		LinkType:    model.LinkTypeCustom,
		WorkspaceID: "ws-1",
		Topic:       "Resumes",
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if link.Slug != "acme" {
		t.Fatalf("expected inherited slug acme, got %q", link.Slug)
	}
	if link.Topic != "resumes" {
		t.Fatalf("expected normalized topic, got %q", link.Topic)
	}
}

func TestLinkService_CreateCustomLink_WithoutBase(t *testing.T) {
	svc := newTestService(&mockLinkRepository{}, nil)
	_, err := svc.CreateLink(context.Background(), Actor{UserID: "user-1"}, CreateLinkInput{
		LinkType:    model.LinkTypeCustom,
		WorkspaceID: "ws-1",
		Topic:       "resumes",
	})
	if !errors.Is(err, ErrBaseLinkMissing) {
		t.Fatalf("expected ErrBaseLinkMissing, got %v", err)
	}
}

func TestLinkService_CreateCustomLink_TopicRequired(t *testing.T) {
	repo := &mockLinkRepository{
		getBaseFn: func(ctx context.Context, userID string) (*model.Link, error) {
			return &model.Link{ID: "base", UserID: userID, Slug: "acme"}, nil
		},
	}

	svc := newTestService(repo, nil)
	_, err := svc.CreateLink(context.Background(), Actor{UserID: "user-1"}, CreateLinkInput{
		LinkType:    model.LinkTypeCustom,
		WorkspaceID: "ws-1",
		Topic:       "   ",
	})
	if !errors.Is(err, ErrTopicRequired) {
		t.Fatalf("expected ErrTopicRequired, got %v", err)
	}
}

func TestLinkService_CreateLink_PasswordHashed(t *testing.T) {
	repo := &mockLinkRepository{}
	svc := newTestService(repo, nil)

	link, err := svc.CreateLink(context.Background(), Actor{UserID: "user-1"}, CreateLinkInput{
		LinkType:        model.LinkTypeBase,
		WorkspaceID:     "ws-1",
		Slug:            "acme-studio",
		RequirePassword: true,
		Password:        "hunter2",
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if link.PasswordHash == nil || *link.PasswordHash == "hunter2" {
		t.Fatal("expected password to be stored as a hash")
	}
}

func TestLinkService_GetLink_NotOwner(t *testing.T) {
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "someone-else"}, nil
		},
	}

	svc := newTestService(repo, nil)
	_, err := svc.GetLink(context.Background(), Actor{UserID: "user-1"}, "link-1")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestLinkService_UpdateLink_CascadeRename(t *testing.T) {
	var gotOldSlug string
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", Slug: "old-name", LinkType: model.LinkTypeBase}, nil
		},
		updateCascadeFn: func(ctx context.Context, link *model.Link, oldSlug string) (int64, error) {
			gotOldSlug = oldSlug
			if link.Slug != "new-name" {
				t.Fatalf("expected new slug, got %q", link.Slug)
			}
			return 3, nil
		},
	}

	svc := newTestService(repo, nil)
	slug := "new-name"
	link, err := svc.UpdateLink(context.Background(), Actor{UserID: "user-1"}, "link-1", UpdateLinkInput{
		Slug: &slug,
	})
	if err != nil {
		t.Fatalf("UpdateLink returned error: %v", err)
	}
	if gotOldSlug != "old-name" {
		t.Fatalf("expected cascade keyed on old slug, got %q", gotOldSlug)
	}
	if link.Slug != "new-name" {
		t.Fatalf("expected renamed link, got %q", link.Slug)
	}
}

func TestLinkService_UpdateLink_UnchangedSlugAccepted(t *testing.T) {
	// Edit forms resubmit every field; keeping a slug must not trip the
	// availability rules, even a short slug on the free plan.
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", Slug: "docs", LinkType: model.LinkTypeBase}, nil
		},
		existsSlugFn: func(ctx context.Context, slug string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(repo, nil)

	slug := "Docs"
	public := false
	link, err := svc.UpdateLink(context.Background(), Actor{UserID: "user-1", Plan: model.PlanFree}, "link-1", UpdateLinkInput{
		Slug:     &slug,
		IsPublic: &public,
	})
	if err != nil {
		t.Fatalf("UpdateLink with unchanged slug returned error: %v", err)
	}
	if link.Slug != "docs" {
		t.Fatalf("expected slug to stay docs, got %q", link.Slug)
	}
	if link.IsPublic {
		t.Fatal("expected the remaining field edit to apply")
	}
}

func TestLinkService_UpdateLink_TopicLinkCannotRename(t *testing.T) {
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", Slug: "acme", Topic: "resumes", LinkType: model.LinkTypeCustom}, nil
		},
	}

	svc := newTestService(repo, nil)
	slug := "other"
	_, err := svc.UpdateLink(context.Background(), Actor{UserID: "user-1"}, "link-1", UpdateLinkInput{
		Slug: &slug,
	})
	if err == nil {
		t.Fatal("expected rename of a topic link to fail")
	}
}

func TestLinkService_UpdateLinkSettings_ClearPassword(t *testing.T) {
	hash := "$2a$10$something"
	var updated *model.Link
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", RequirePassword: true, PasswordHash: &hash}, nil
		},
		updateFn: func(ctx context.Context, link *model.Link) error {
			updated = link
			return nil
		},
	}

	svc := newTestService(repo, nil)
	empty := ""
	_, err := svc.UpdateLinkSettings(context.Background(), Actor{UserID: "user-1"}, "link-1", UpdateSettingsInput{
		Password: &empty,
	})
	if err != nil {
		t.Fatalf("UpdateLinkSettings returned error: %v", err)
	}
	if updated.PasswordHash != nil || updated.RequirePassword {
		t.Fatal("expected password to be cleared")
	}
}

func TestLinkService_ToggleLinkActive(t *testing.T) {
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", IsActive: true}, nil
		},
	}

	svc := newTestService(repo, nil)
	link, err := svc.ToggleLinkActive(context.Background(), Actor{UserID: "user-1"}, "link-1")
	if err != nil {
		t.Fatalf("ToggleLinkActive returned error: %v", err)
	}
	if link.IsActive {
		t.Fatal("expected link to be deactivated")
	}
}

func TestLinkService_DuplicateLink_BaseBecomesCustomCopy(t *testing.T) {
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{
				ID: id, UserID: "user-1", Slug: "acme",
				LinkType: model.LinkTypeBase, TotalUploads: 42, TotalFiles: 99,
			}, nil
		},
	}

	svc := newTestService(repo, nil)
	dup, err := svc.DuplicateLink(context.Background(), Actor{UserID: "user-1"}, "link-1")
	if err != nil {
		t.Fatalf("DuplicateLink returned error: %v", err)
	}
	if dup.ID == "link-1" {
		t.Fatal("expected duplicate to get a fresh id")
	}
	if dup.LinkType != model.LinkTypeCustom || dup.Topic != "copy" {
		t.Fatalf("expected custom copy link, got type=%q topic=%q", dup.LinkType, dup.Topic)
	}
	if dup.TotalUploads != 0 || dup.TotalFiles != 0 {
		t.Fatal("expected stats to reset on duplicate")
	}
}

func TestLinkService_DuplicateLink_TopicGetsCopySuffix(t *testing.T) {
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", Slug: "acme", Topic: "resumes", LinkType: model.LinkTypeCustom}, nil
		},
	}

	svc := newTestService(repo, nil)
	dup, err := svc.DuplicateLink(context.Background(), Actor{UserID: "user-1"}, "link-1")
	if err != nil {
		t.Fatalf("DuplicateLink returned error: %v", err)
	}
	if dup.Topic != "resumes-copy" {
		t.Fatalf("expected resumes-copy, got %q", dup.Topic)
	}
}

func TestLinkService_BulkDeleteLinks_ScopedToActor(t *testing.T) {
	repo := &mockLinkRepository{
		softDeleteManyFn: func(ctx context.Context, userID string, ids []string) (int64, error) {
			if userID != "user-1" {
				t.Fatalf("expected delete scoped to user-1, got %q", userID)
			}
			return 2, nil
		},
	}

	svc := newTestService(repo, nil)
	affected, err := svc.BulkDeleteLinks(context.Background(), Actor{UserID: "user-1"}, []string{"a", "b", "foreign"})
	if err != nil {
		t.Fatalf("BulkDeleteLinks returned error: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 affected, got %d", affected)
	}
}

func TestLinkService_HardDeleteLink(t *testing.T) {
	hardDeleted := false
	repo := &mockLinkRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Link, error) {
			return &model.Link{ID: id, UserID: "user-1", Slug: "acme"}, nil
		},
		hardDeleteFn: func(ctx context.Context, id string) error {
			hardDeleted = true
			return nil
		},
	}

	svc := newTestService(repo, nil)
	if err := svc.HardDeleteLink(context.Background(), Actor{UserID: "user-1"}, "link-1"); err != nil {
		t.Fatalf("HardDeleteLink returned error: %v", err)
	}
	if !hardDeleted {
		t.Fatal("expected repository hard delete to run")
	}
}

func TestLinkService_GenerateLinkFromFolder(t *testing.T) {
	repo := &mockLinkRepository{
		getBaseFn: func(ctx context.Context, userID string) (*model.Link, error) {
			return &model.Link{ID: "base", UserID: userID, Slug: "acme", MaxFiles: 50}, nil
		},
	}
	folders := &mockFolderRepository{
		getFn: func(ctx context.Context, id string) (*model.Folder, error) {
			return &model.Folder{ID: id, UserID: "user-1", WorkspaceID: "ws-1", Name: "Q3 Reports"}, nil
		},
	}

	svc := newTestService(repo, folders)
	link, err := svc.GenerateLinkFromFolder(context.Background(), Actor{UserID: "user-1"}, "folder-1")
	if err != nil {
		t.Fatalf("GenerateLinkFromFolder returned error: %v", err)
	}
	if link.LinkType != model.LinkTypeGenerated {
		t.Fatalf("expected generated link, got %q", link.LinkType)
	}
	if link.SourceFolderID == nil || *link.SourceFolderID != "folder-1" {
		t.Fatal("expected source folder to be recorded")
	}
	if link.Topic != "q3-reports" {
		t.Fatalf("expected slugified folder name, got %q", link.Topic)
	}
	if link.Slug != "acme" {
		t.Fatalf("expected inherited slug, got %q", link.Slug)
	}
	if link.MaxFiles != 50 {
		t.Fatalf("expected constraints inherited from base, got %d", link.MaxFiles)
	}
}

func TestLinkService_GenerateLinkFromFolder_NotOwner(t *testing.T) {
	folders := &mockFolderRepository{
		getFn: func(ctx context.Context, id string) (*model.Folder, error) {
			return &model.Folder{ID: id, UserID: "someone-else", Name: "Reports"}, nil
		},
	}

	svc := newTestService(&mockLinkRepository{}, folders)
	_, err := svc.GenerateLinkFromFolder(context.Background(), Actor{UserID: "user-1"}, "folder-1")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}
