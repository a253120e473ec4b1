package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

var (
	// ErrLinkNotFound signals that the requested link does not exist or is
	// soft-deleted.
	ErrLinkNotFound = errors.New("link not found")
	// ErrSlugTaken signals a (slug, topic) uniqueness violation.
	ErrSlugTaken = errors.New("slug and topic already taken")
)

// LinkRepository defines the data access contract for upload links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, id string) (*model.Link, error)
	GetBySlugTopic(ctx context.Context, slug, topic string) (*model.Link, error)
	GetBaseByUserID(ctx context.Context, userID string) (*model.Link, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Link, error)
	Update(ctx context.Context, link *model.Link) error
	// UpdateWithCascade applies the field edits and, when the base slug
	// changed, retargets every link of the user sharing the old slug. Both
	// run in one transaction; it returns the number of cascaded rows.
	UpdateWithCascade(ctx context.Context, link *model.Link, oldSlug string) (int64, error)
	SoftDelete(ctx context.Context, id string) error
	SoftDeleteMany(ctx context.Context, userID string, ids []string) (int64, error)
	// HardDelete removes the link and its dependent files and batches in a
	// single transaction.
	HardDelete(ctx context.Context, id string) error
	ExistsSlug(ctx context.Context, slug string) (bool, error)
	ExistsSlugTopic(ctx context.Context, slug, topic string) (bool, error)
	AllSlugs(ctx context.Context) ([]string, error)
	// ApplyUploadStats folds an accepted upload batch into the denormalized
	// stat columns.
	ApplyUploadStats(ctx context.Context, linkID string, files int, bytes int64, at time.Time) error
	// DeactivateExpired flips is_active off for links whose expiry passed,
	// returning the affected count.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type linkRepository struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

// NewLinkRepository returns a LinkRepository backed by GORM for row access
// and the pgx pool for the bulk statements.
func NewLinkRepository(db *gorm.DB, pool *pgxpool.Pool) LinkRepository {
	return &linkRepository{db: db, pool: pool}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return translateConstraint(err)
	}
	return nil
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetBySlugTopic(ctx context.Context, slug, topic string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).First(&link, "slug = ? AND topic = ?", slug, topic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetBaseByUserID(ctx context.Context, userID string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).
		First(&link, "user_id = ? AND link_type = ?", userID, model.LinkTypeBase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Link, error) {
	var links []model.Link
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) Update(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		return translateConstraint(err)
	}
	return nil
}

func (r *linkRepository) UpdateWithCascade(ctx context.Context, link *model.Link, oldSlug string) (int64, error) {
	var cascaded int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if oldSlug != "" && oldSlug != link.Slug {
			res := tx.Model(&model.Link{}).
				Where("user_id = ? AND slug = ? AND id <> ?", link.UserID, oldSlug, link.ID).
				Update("slug", link.Slug)
			if res.Error != nil {
				return translateConstraint(res.Error)
			}
			cascaded = res.RowsAffected
		}
		if err := tx.Save(link).Error; err != nil {
			return translateConstraint(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cascaded, nil
}

func (r *linkRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Link{}).Where("id = ?", id).Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return tx.Delete(&model.Link{}, "id = ?", id).Error
	})
}

func (r *linkRepository) SoftDeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Link{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&model.Link{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *linkRepository) HardDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", id).Delete(&model.File{}).Error; err != nil {
			return err
		}
		if err := tx.Where("link_id = ?", id).Delete(&model.Batch{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&model.Link{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return nil
	})
}

func (r *linkRepository) ExistsSlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *linkRepository) ExistsSlugTopic(ctx context.Context, slug, topic string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("slug = ? AND topic = ?", slug, topic).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *linkRepository) AllSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT slug FROM links WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func (r *linkRepository) ApplyUploadStats(ctx context.Context, linkID string, files int, bytes int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE links
		SET total_uploads = total_uploads + 1,
		    total_files = total_files + $2,
		    total_size = total_size + $3,
		    last_upload_at = $4,
		    updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL`,
		linkID, files, bytes, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE links
		SET is_active = FALSE, updated_at = $1
		WHERE is_active = TRUE AND deleted_at IS NULL
		  AND expires_at IS NOT NULL AND expires_at < $1`,
		now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// translateConstraint maps Postgres unique violations on the slug/topic index
// to ErrSlugTaken so callers get a stable sentinel.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return err
}
