package service

import (
	"context"
	"fmt"
	"io"
	"path"

	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/infra/objectstore"
)

// BrandingService manages the logo assets behind a link's branded upload
// page.
type BrandingService struct {
	links  repository.LinkRepository
	store  objectstore.Store
	logger *zap.Logger
}

// NewBrandingService returns a branding service over the given object store.
func NewBrandingService(links repository.LinkRepository, store objectstore.Store, logger *zap.Logger) *BrandingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrandingService{links: links, store: store, logger: logger}
}

// UploadLogo stores the logo object and points the link's branding at it.
// A stale previous logo is removed best-effort; its failure is logged and
// swallowed because the link mutation already succeeded.
func (s *BrandingService) UploadLogo(ctx context.Context, actor Actor, linkID, filename, contentType string, r io.Reader, size int64) (*model.Link, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	if link.UserID != actor.UserID {
		return nil, ErrNotOwner
	}

	key := path.Join("branding", link.ID, filename)
	url, err := s.store.Put(ctx, key, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload logo: %w", err)
	}

	oldKey := link.BrandLogoKey
	link.BrandLogoKey = key
	link.BrandLogoURL = url
	link.BrandEnabled = true
	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("save branding: %w", err)
	}

	if oldKey != "" && oldKey != key {
		if err := s.store.Remove(ctx, oldKey); err != nil {
			s.logger.Warn("stale logo cleanup failed",
				zap.String("link_id", link.ID),
				zap.String("key", oldKey),
				zap.Error(err))
		}
	}

	return link, nil
}

// RemoveLogo clears the link's logo. The object delete is best-effort; the
// row is cleared regardless so the dashboard state stays authoritative.
func (s *BrandingService) RemoveLogo(ctx context.Context, actor Actor, linkID string) (*model.Link, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	if link.UserID != actor.UserID {
		return nil, ErrNotOwner
	}

	if link.BrandLogoKey != "" {
		if err := s.store.Remove(ctx, link.BrandLogoKey); err != nil {
			s.logger.Warn("logo object removal failed",
				zap.String("link_id", link.ID),
				zap.String("key", link.BrandLogoKey),
				zap.Error(err))
		}
	}

	link.BrandLogoKey = ""
	link.BrandLogoURL = ""
	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("clear branding: %w", err)
	}
	return link, nil
}
