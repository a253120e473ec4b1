package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

// ErrFolderNotFound signals that the requested folder does not exist.
var ErrFolderNotFound = errors.New("folder not found")

// FolderRepository defines the data access contract for workspace folders.
type FolderRepository interface {
	GetByID(ctx context.Context, id string) (*model.Folder, error)
	Create(ctx context.Context, folder *model.Folder) error
}

type folderRepository struct {
	db *gorm.DB
}

// NewFolderRepository returns a GORM-backed FolderRepository.
func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) GetByID(ctx context.Context, id string) (*model.Folder, error) {
	var folder model.Folder
	err := r.db.WithContext(ctx).First(&folder, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return &folder, nil
}

func (r *folderRepository) Create(ctx context.Context, folder *model.Folder) error {
	return r.db.WithContext(ctx).Create(folder).Error
}
