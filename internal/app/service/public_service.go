package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/auth"
)

var (
	// ErrLinkInactive signals a disabled or soft-deleted link.
	ErrLinkInactive = errors.New("link is inactive")
	// ErrLinkExpired signals a link past its expiry.
	ErrLinkExpired = errors.New("link expired")
	// ErrLinkPrivate signals a link not open to public resolution.
	ErrLinkPrivate = errors.New("link is private")
	// ErrPasswordRequired signals that no password was provided for a
	// password-protected link.
	ErrPasswordRequired = errors.New("link requires a password")
	// ErrPasswordIncorrect signals a failed password check.
	ErrPasswordIncorrect = errors.New("link password incorrect")
	// ErrEmailRequired signals that the link requires an uploader email.
	ErrEmailRequired = errors.New("link requires an uploader email")

	// ErrTooManyFiles signals an upload manifest over the link's file cap.
	ErrTooManyFiles = errors.New("too many files for this link")
	// ErrFileTooLarge signals a manifest entry over the per-file size cap.
	ErrFileTooLarge = errors.New("file exceeds the link's size limit")
	// ErrTypeNotAllowed signals a manifest entry outside the allowed MIME list.
	ErrTypeNotAllowed = errors.New("file type not allowed on this link")
)

// ResolveInput carries the visitor-provided credentials for resolution.
type ResolveInput struct {
	Slug     string
	Topic    string
	Password string
	Email    string
}

// UploadFile is one entry of the declared upload manifest.
type UploadFile struct {
	Name        string `json:"name"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// PublicService serves the public upload page: link resolution with policy
// enforcement and upload-manifest acceptance.
type PublicService struct {
	links  repository.LinkRepository
	cache  *LinkCache
	events *EventPublisher
	logger *zap.Logger
}

// NewPublicService returns the public-facing service. Cache and events may
// be nil.
func NewPublicService(links repository.LinkRepository, cache *LinkCache, events *EventPublisher, logger *zap.Logger) *PublicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicService{links: links, cache: cache, events: events, logger: logger}
}

// Resolve loads a link by slug/topic and enforces the full access policy:
// public, active, unexpired, password, email.
func (s *PublicService) Resolve(ctx context.Context, input ResolveInput) (*model.Link, error) {
	link, err := s.load(ctx, input.Slug, input.Topic)
	if err != nil {
		return nil, err
	}

	if link.RequirePassword {
		if input.Password == "" {
			return nil, ErrPasswordRequired
		}
		if link.PasswordHash == nil || !auth.CheckPassword(input.Password, *link.PasswordHash) {
			return nil, ErrPasswordIncorrect
		}
	}
	if link.RequireEmail && input.Email == "" {
		return nil, ErrEmailRequired
	}

	return link, nil
}

// AcceptUpload validates a declared manifest against the link's upload
// constraints and publishes the batch onto the upload stream. It returns the
// accepted file count. Byte transport is the uploader's business.
func (s *PublicService) AcceptUpload(ctx context.Context, slug, topic, uploaderEmail string, manifest []UploadFile) (int, error) {
	link, err := s.load(ctx, slug, topic)
	if err != nil {
		return 0, err
	}
	if link.RequireEmail && uploaderEmail == "" {
		return 0, ErrEmailRequired
	}

	if len(manifest) == 0 {
		return 0, errors.New("upload manifest is empty")
	}
	if link.MaxFiles > 0 && len(manifest) > link.MaxFiles {
		return 0, ErrTooManyFiles
	}

	allowed := link.AllowedTypes()
	var totalBytes int64
	for _, f := range manifest {
		if link.MaxFileSizeBytes > 0 && f.SizeBytes > link.MaxFileSizeBytes {
			return 0, fmt.Errorf("%w: %s", ErrFileTooLarge, f.Name)
		}
		if len(allowed) > 0 && !typeAllowed(allowed, f.ContentType) {
			return 0, fmt.Errorf("%w: %s", ErrTypeNotAllowed, f.ContentType)
		}
		totalBytes += f.SizeBytes
	}

	if s.events != nil {
		if err := s.events.PublishUpload(link.ID, link.UserID, uploaderEmail, len(manifest), totalBytes); err != nil {
			return 0, fmt.Errorf("publish upload event: %w", err)
		}
	}

	s.logger.Info("upload batch accepted",
		zap.String("link_id", link.ID),
		zap.Int("files", len(manifest)),
		zap.Int64("bytes", totalBytes))
	return len(manifest), nil
}

// load fetches a link through the cache and enforces the passive policy
// gates every public request shares.
func (s *PublicService) load(ctx context.Context, slug, topic string) (*model.Link, error) {
	slug = NormalizeSlug(slug)
	topic = NormalizeSlug(topic)

	var link *model.Link
	if s.cache != nil {
		link = s.cache.Get(ctx, slug, topic)
	}
	if link == nil {
		var err error
		link, err = s.links.GetBySlugTopic(ctx, slug, topic)
		if err != nil {
			if errors.Is(err, repository.ErrLinkNotFound) {
				return nil, repository.ErrLinkNotFound
			}
			return nil, fmt.Errorf("load link: %w", err)
		}
		if s.cache != nil {
			s.cache.Set(ctx, link)
		}
	}

	if !link.IsPublic {
		return nil, ErrLinkPrivate
	}
	if !link.IsActive {
		return nil, ErrLinkInactive
	}
	if link.Expired(time.Now()) {
		return nil, ErrLinkExpired
	}
	return link, nil
}

func typeAllowed(allowed []string, contentType string) bool {
	for _, t := range allowed {
		if t == contentType {
			return true
		}
	}
	return false
}
