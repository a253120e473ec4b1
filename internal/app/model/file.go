package model

import "time"

// Folder is a workspace folder; generated links point at one via
// SourceFolderID and route uploads into it.
type Folder struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UserID      string `gorm:"type:uuid;not null;index"`
	WorkspaceID string `gorm:"type:uuid;not null;index"`
	Name        string `gorm:"size:255;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Batch groups the files of a single upload session against a link.
type Batch struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	LinkID        string `gorm:"type:uuid;not null;index"`
	UploaderEmail string `gorm:"size:255;not null;default:''"`
	FileCount     int    `gorm:"not null;default:0"`
	TotalSize     int64  `gorm:"not null;default:0"`
	CreatedAt     time.Time
}

// File is one uploaded file record. Byte transport lives elsewhere; this row
// is the accounting side that hard delete cascades over.
type File struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	LinkID      string  `gorm:"type:uuid;not null;index"`
	BatchID     string  `gorm:"type:uuid;not null;index"`
	FolderID    *string `gorm:"type:uuid"`
	Name        string  `gorm:"size:512;not null"`
	SizeBytes   int64   `gorm:"not null;default:0"`
	ContentType string  `gorm:"size:255;not null;default:''"`
	CreatedAt   time.Time
}
