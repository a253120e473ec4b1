package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/auth"
)

var (
	// ErrNotOwner signals that the acting user does not own the link.
	ErrNotOwner = errors.New("not the owner of this link")
	// ErrBaseLinkExists signals an attempt to create a second base link.
	ErrBaseLinkExists = errors.New("user already has a base link")
	// ErrBaseLinkMissing signals that a topic or generated link was requested
	// before the user created a base link.
	ErrBaseLinkMissing = errors.New("user has no base link to attach to")
	// ErrTopicRequired signals a custom link without a topic.
	ErrTopicRequired = errors.New("topic is required for custom links")
	// ErrSlugUnavailable signals a slug rejected by the availability rules.
	ErrSlugUnavailable = errors.New("slug is not available")
)

// Actor is the authenticated dashboard identity mutations run as.
type Actor struct {
	UserID string
	Plan   string
}

// LinkService defines behaviour-level operations on upload links.
type LinkService interface {
	CreateLink(ctx context.Context, actor Actor, input CreateLinkInput) (*model.Link, error)
	GetLink(ctx context.Context, actor Actor, id string) (*model.Link, error)
	ListLinks(ctx context.Context, actor Actor, limit, offset int) ([]model.Link, error)
	UpdateLink(ctx context.Context, actor Actor, id string, input UpdateLinkInput) (*model.Link, error)
	UpdateLinkSettings(ctx context.Context, actor Actor, id string, input UpdateSettingsInput) (*model.Link, error)
	ToggleLinkActive(ctx context.Context, actor Actor, id string) (*model.Link, error)
	DuplicateLink(ctx context.Context, actor Actor, id string) (*model.Link, error)
	DeleteLink(ctx context.Context, actor Actor, id string) error
	BulkDeleteLinks(ctx context.Context, actor Actor, ids []string) (int64, error)
	HardDeleteLink(ctx context.Context, actor Actor, id string) error
	GenerateLinkFromFolder(ctx context.Context, actor Actor, folderID string) (*model.Link, error)
}

type linkService struct {
	links        repository.LinkRepository
	folders      repository.FolderRepository
	availability *AvailabilityService
	events       *EventPublisher
	cache        *LinkCache
	logger       *zap.Logger
}

// LinkServiceDeps groups the collaborators of the link service. Events and
// Cache may be nil; both are best-effort side channels.
type LinkServiceDeps struct {
	Links        repository.LinkRepository
	Folders      repository.FolderRepository
	Availability *AvailabilityService
	Events       *EventPublisher
	Cache        *LinkCache
	Logger       *zap.Logger
}

// NewLinkService returns a service implementation backed by the given
// repositories.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		links:        deps.Links,
		folders:      deps.Folders,
		availability: deps.Availability,
		events:       deps.Events,
		cache:        deps.Cache,
		logger:       logger,
	}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	LinkType    string
	WorkspaceID string
	Slug        string // base links only; custom/generated inherit the base slug
	Topic       string

	IsPublic        bool
	RequireEmail    bool
	RequirePassword bool
	Password        string
	ExpiresAt       *time.Time

	MaxFiles         int
	MaxFileSizeBytes int64
	AllowedFileTypes []string

	BrandEnabled bool
	BrandColor   string
}

// UpdateLinkInput captures general fields that can be changed on a link.
// Renaming a base link's slug cascades to every link sharing the old slug.
type UpdateLinkInput struct {
	Slug      *string
	Topic     *string
	IsPublic  *bool
	ExpiresAt *time.Time
}

// UpdateSettingsInput captures the access policy, upload constraint and
// branding fields of the settings form.
type UpdateSettingsInput struct {
	RequireEmail    *bool
	RequirePassword *bool
	Password        *string // non-empty sets a new password, empty clears it
	ExpiresAt       *time.Time
	ClearExpiry     bool

	MaxFiles         *int
	MaxFileSizeBytes *int64
	AllowedFileTypes []string
	HasFileTypes     bool

	BrandEnabled *bool
	BrandColor   *string
}

func (s *linkService) CreateLink(ctx context.Context, actor Actor, input CreateLinkInput) (*model.Link, error) {
	link := &model.Link{
		ID:               uuid.New().String(),
		UserID:           actor.UserID,
		WorkspaceID:      input.WorkspaceID,
		LinkType:         input.LinkType,
		IsPublic:         input.IsPublic,
		RequireEmail:     input.RequireEmail,
		RequirePassword:  input.RequirePassword,
		ExpiresAt:        input.ExpiresAt,
		IsActive:         true,
		MaxFiles:         input.MaxFiles,
		MaxFileSizeBytes: input.MaxFileSizeBytes,
		AllowedFileTypes: packTypes(input.AllowedFileTypes),
		BrandEnabled:     input.BrandEnabled,
		BrandColor:       input.BrandColor,
	}

	switch input.LinkType {
	case model.LinkTypeBase:
		if _, err := s.links.GetBaseByUserID(ctx, actor.UserID); err == nil {
			return nil, ErrBaseLinkExists
		} else if !errors.Is(err, repository.ErrLinkNotFound) {
			return nil, fmt.Errorf("check base link: %w", err)
		}
		slug, err := s.claimSlug(ctx, actor, input.Slug)
		if err != nil {
			return nil, err
		}
		link.Slug = slug
		link.Topic = ""
	case model.LinkTypeCustom:
		base, err := s.links.GetBaseByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrLinkNotFound) {
				return nil, ErrBaseLinkMissing
			}
			return nil, fmt.Errorf("load base link: %w", err)
		}
		topic := NormalizeSlug(input.Topic)
		if topic == "" {
			return nil, ErrTopicRequired
		}
		link.Slug = base.Slug
		link.Topic = topic
	case model.LinkTypeGenerated:
		return nil, errors.New("generated links are created via GenerateLinkFromFolder")
	default:
		return nil, fmt.Errorf("unknown link type %q", input.LinkType)
	}

	if input.RequirePassword {
		if input.Password == "" {
			return nil, errors.New("password required when require_password is set")
		}
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash link password: %w", err)
		}
		link.PasswordHash = &hash
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	if s.availability != nil {
		s.availability.Observe(link.Slug)
	}
	s.notify(actor.UserID, "created", link)
	return link, nil
}

func (s *linkService) GetLink(ctx context.Context, actor Actor, id string) (*model.Link, error) {
	link, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, actor Actor, limit, offset int) ([]model.Link, error) {
	links, err := s.links.ListByUserID(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) UpdateLink(ctx context.Context, actor Actor, id string, input UpdateLinkInput) (*model.Link, error) {
	link, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	oldSlug := link.Slug
	oldTopic := link.Topic

	if input.Slug != nil {
		if link.LinkType != model.LinkTypeBase {
			return nil, errors.New("only base links can be renamed; topic links inherit the base slug")
		}
		// Resubmitting the current slug is a no-op, not a claim; the
		// availability rules only apply to an actual rename.
		if slug := NormalizeSlug(*input.Slug); slug != oldSlug {
			slug, err := s.claimSlug(ctx, actor, slug)
			if err != nil {
				return nil, err
			}
			link.Slug = slug
		}
	}
	if input.Topic != nil {
		if link.LinkType == model.LinkTypeBase {
			return nil, errors.New("base links have no topic")
		}
		topic := NormalizeSlug(*input.Topic)
		if topic == "" {
			return nil, ErrTopicRequired
		}
		link.Topic = topic
	}
	if input.IsPublic != nil {
		link.IsPublic = *input.IsPublic
	}
	if input.ExpiresAt != nil {
		link.ExpiresAt = input.ExpiresAt
	}

	cascaded, err := s.links.UpdateWithCascade(ctx, link, oldSlug)
	if err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}
	if cascaded > 0 {
		s.logger.Info("cascaded base slug rename",
			zap.String("user_id", actor.UserID),
			zap.String("old_slug", oldSlug),
			zap.String("new_slug", link.Slug),
			zap.Int64("links", cascaded))
		if s.availability != nil {
			s.availability.Observe(link.Slug)
		}
	}

	if link.Slug != oldSlug {
		// A rename moves every topic link's key, not just this row's.
		s.invalidateSlug(oldSlug)
	} else {
		s.invalidate(oldSlug, oldTopic)
	}
	s.notify(actor.UserID, "updated", link)
	return link, nil
}

func (s *linkService) UpdateLinkSettings(ctx context.Context, actor Actor, id string, input UpdateSettingsInput) (*model.Link, error) {
	link, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.RequireEmail != nil {
		link.RequireEmail = *input.RequireEmail
	}
	if input.RequirePassword != nil {
		link.RequirePassword = *input.RequirePassword
		if !link.RequirePassword {
			link.PasswordHash = nil
		}
	}
	if input.Password != nil {
		if *input.Password == "" {
			link.PasswordHash = nil
			link.RequirePassword = false
		} else {
			hash, err := auth.HashPassword(*input.Password)
			if err != nil {
				return nil, fmt.Errorf("hash link password: %w", err)
			}
			link.PasswordHash = &hash
			link.RequirePassword = true
		}
	}
	if input.ClearExpiry {
		link.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		link.ExpiresAt = input.ExpiresAt
	}
	if input.MaxFiles != nil {
		link.MaxFiles = *input.MaxFiles
	}
	if input.MaxFileSizeBytes != nil {
		link.MaxFileSizeBytes = *input.MaxFileSizeBytes
	}
	if input.HasFileTypes {
		link.AllowedFileTypes = packTypes(input.AllowedFileTypes)
	}
	if input.BrandEnabled != nil {
		link.BrandEnabled = *input.BrandEnabled
	}
	if input.BrandColor != nil {
		link.BrandColor = *input.BrandColor
	}

	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update link settings: %w", err)
	}

	s.invalidate(link.Slug, link.Topic)
	s.notify(actor.UserID, "settings_updated", link)
	return link, nil
}

func (s *linkService) ToggleLinkActive(ctx context.Context, actor Actor, id string) (*model.Link, error) {
	link, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	link.IsActive = !link.IsActive
	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("toggle link: %w", err)
	}

	s.invalidate(link.Slug, link.Topic)
	s.notify(actor.UserID, "toggled", link)
	return link, nil
}

func (s *linkService) DuplicateLink(ctx context.Context, actor Actor, id string) (*model.Link, error) {
	src, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	// A base link is singular per user, so its copy becomes a topic link.
	copyTopic := src.Topic + "-copy"
	copyType := src.LinkType
	if src.LinkType == model.LinkTypeBase {
		copyTopic = "copy"
		copyType = model.LinkTypeCustom
	}

	dup := *src
	dup.ID = uuid.New().String()
	dup.LinkType = copyType
	dup.Topic = copyTopic
	dup.TotalUploads = 0
	dup.TotalFiles = 0
	dup.TotalSize = 0
	dup.LastUploadAt = nil
	dup.IsActive = true
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}

	if err := s.links.Create(ctx, &dup); err != nil {
		return nil, fmt.Errorf("duplicate link: %w", err)
	}

	s.notify(actor.UserID, "duplicated", &dup)
	return &dup, nil
}

func (s *linkService) DeleteLink(ctx context.Context, actor Actor, id string) error {
	link, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.links.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("soft delete link: %w", err)
	}

	s.invalidate(link.Slug, link.Topic)
	s.notify(actor.UserID, "deleted", link)
	return nil
}

func (s *linkService) BulkDeleteLinks(ctx context.Context, actor Actor, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	// The repository scopes the statement to the actor's rows, so foreign ids
	// in the batch are ignored rather than leaked.
	affected, err := s.links.SoftDeleteMany(ctx, actor.UserID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete links: %w", err)
	}

	if s.events != nil {
		s.events.LinkChanged(actor.UserID, "bulk_deleted", "")
	}
	return affected, nil
}

func (s *linkService) HardDeleteLink(ctx context.Context, actor Actor, id string) error {
	link, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.links.HardDelete(ctx, id); err != nil {
		return fmt.Errorf("hard delete link: %w", err)
	}

	s.invalidate(link.Slug, link.Topic)
	s.notify(actor.UserID, "hard_deleted", link)
	return nil
}

func (s *linkService) GenerateLinkFromFolder(ctx context.Context, actor Actor, folderID string) (*model.Link, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("load folder: %w", err)
	}
	if folder.UserID != actor.UserID {
		return nil, ErrNotOwner
	}

	base, err := s.links.GetBaseByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrBaseLinkMissing
		}
		return nil, fmt.Errorf("load base link: %w", err)
	}

	topic := topicFromFolderName(folder.Name)
	if topic == "" {
		return nil, ErrTopicRequired
	}

	folderRef := folder.ID
	link := &model.Link{
		ID:               uuid.New().String(),
		UserID:           actor.UserID,
		WorkspaceID:      folder.WorkspaceID,
		Slug:             base.Slug,
		Topic:            topic,
		LinkType:         model.LinkTypeGenerated,
		SourceFolderID:   &folderRef,
		IsPublic:         true,
		IsActive:         true,
		MaxFiles:         base.MaxFiles,
		MaxFileSizeBytes: base.MaxFileSizeBytes,
		AllowedFileTypes: base.AllowedFileTypes,
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("generate link from folder: %w", err)
	}

	s.notify(actor.UserID, "generated", link)
	return link, nil
}

// owned loads a link and verifies the actor owns it.
func (s *linkService) owned(ctx context.Context, actor Actor, id string) (*model.Link, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	if link.UserID != actor.UserID {
		return nil, ErrNotOwner
	}
	return link, nil
}

// claimSlug normalizes and validates a slug against the availability rules.
func (s *linkService) claimSlug(ctx context.Context, actor Actor, raw string) (string, error) {
	slug := NormalizeSlug(raw)
	if s.availability == nil {
		if slug == "" {
			return "", ErrSlugUnavailable
		}
		return slug, nil
	}
	result, err := s.availability.CheckSlug(ctx, actor, slug)
	if err != nil {
		return "", fmt.Errorf("check slug: %w", err)
	}
	if !result.Available {
		return "", fmt.Errorf("%w: %s", ErrSlugUnavailable, result.Reason)
	}
	return slug, nil
}

// notify broadcasts the mutation on the user's invalidation subject.
// Fire-and-forget: broadcast failures are logged, never surfaced.
func (s *linkService) notify(userID, action string, link *model.Link) {
	if s.events == nil {
		return
	}
	go func() {
		if err := s.events.LinkChanged(userID, action, link.ID); err != nil {
			s.logger.Warn("link change broadcast failed",
				zap.String("user_id", userID),
				zap.String("action", action),
				zap.Error(err))
		}
	}()
}

func (s *linkService) invalidate(slug, topic string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(context.Background(), slug, topic)
}

func (s *linkService) invalidateSlug(slug string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateSlug(context.Background(), slug)
}

func packTypes(types []string) string {
	return strings.Join(types, ",")
}

// topicFromFolderName turns an arbitrary folder name into a URL-safe topic.
func topicFromFolderName(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
