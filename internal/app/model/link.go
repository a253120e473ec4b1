package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Link types. A base link is the single default upload link a user owns, a
// custom link scopes uploads to a topic under the base slug, and a generated
// link is derived from a workspace folder and uploads straight into it.
const (
	LinkTypeBase      = "base"
	LinkTypeCustom    = "custom"
	LinkTypeGenerated = "generated"
)

// Link describes a shareable upload link stored in Postgres.
//
// Topic is the empty string for base links so the (slug, topic) unique index
// covers them too; Postgres would not collide two NULL topics.
type Link struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UserID      string `gorm:"type:uuid;not null;index"`
	WorkspaceID string `gorm:"type:uuid;not null;index"`

	// The unique index is partial: soft-deleted rows release their pair so
	// the name can be claimed again.
	Slug     string `gorm:"size:100;not null;uniqueIndex:idx_links_slug_topic,where:deleted_at IS NULL"`
	Topic    string `gorm:"size:100;not null;default:'';uniqueIndex:idx_links_slug_topic,where:deleted_at IS NULL"`
	LinkType string `gorm:"size:16;not null;default:base"`

	// SourceFolderID is set only for generated links.
	SourceFolderID *string `gorm:"type:uuid"`

	// Access policy.
	IsPublic        bool       `gorm:"not null;default:true"`
	RequireEmail    bool       `gorm:"not null;default:false"`
	RequirePassword bool       `gorm:"not null;default:false"`
	PasswordHash    *string    `gorm:"type:text"`
	ExpiresAt       *time.Time `gorm:"index"`
	IsActive        bool       `gorm:"not null;default:true"`

	// Upload constraints.
	MaxFiles         int    `gorm:"not null;default:100"`
	MaxFileSizeBytes int64  `gorm:"not null;default:104857600"`
	AllowedFileTypes string `gorm:"type:text;not null;default:''"`

	// Branding of the public upload page.
	BrandEnabled bool   `gorm:"not null;default:false"`
	BrandColor   string `gorm:"size:16;not null;default:''"`
	BrandLogoKey string `gorm:"type:text;not null;default:''"`
	BrandLogoURL string `gorm:"type:text;not null;default:''"`

	// Denormalized upload stats, maintained by the upload event consumer.
	TotalUploads int64 `gorm:"not null;default:0"`
	TotalFiles   int64 `gorm:"not null;default:0"`
	TotalSize    int64 `gorm:"not null;default:0"`
	LastUploadAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Expired reports whether the link's expiry has passed.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// AllowedTypes splits the comma-packed MIME list; empty means unrestricted.
func (l *Link) AllowedTypes() []string {
	if l.AllowedFileTypes == "" {
		return nil
	}
	return strings.Split(l.AllowedFileTypes, ",")
}
