package model

import "time"

// UploadEvent is the JetStream payload emitted when a public upload batch is
// accepted. The consumer folds it into the link's denormalized stats.
type UploadEvent struct {
	ID            string    `json:"id"`
	LinkID        string    `json:"link_id"`
	UserID        string    `json:"user_id"`
	UploaderEmail string    `json:"uploader_email"`
	FileCount     int       `json:"file_count"`
	TotalBytes    int64     `json:"total_bytes"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	UploadStreamName     = "UPLOADS"
	UploadStreamSubject  = "uploads.events"
	UploadConsumerName   = "upload-stats"
	UploadStreamMaxBytes = 1024 * 1024 * 256 // 256MB
)

// LinkEventSubject is the per-user NATS subject dashboards subscribe to for
// cache invalidation after link mutations.
func LinkEventSubject(userID string) string {
	return "links.user." + userID
}
