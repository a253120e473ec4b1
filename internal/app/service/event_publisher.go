package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

// LinkChangedEvent is the payload broadcast on the per-user invalidation
// subject after a mutation.
type LinkChangedEvent struct {
	Action    string    `json:"action"`
	LinkID    string    `json:"link_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes link change broadcasts on core NATS and upload
// events on JetStream.
type EventPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewEventPublisher creates a publisher over the given connection.
func NewEventPublisher(conn *nats.Conn, js nats.JetStreamContext) *EventPublisher {
	return &EventPublisher{conn: conn, js: js}
}

// LinkChanged broadcasts a change notification on links.user.<id>.
func (p *EventPublisher) LinkChanged(userID, action, linkID string) error {
	event := LinkChangedEvent{
		Action:    action,
		LinkID:    linkID,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(model.LinkEventSubject(userID), data)
}

// PublishUpload persists an accepted upload batch onto the JetStream stream
// for the stats consumer.
func (p *EventPublisher) PublishUpload(linkID, userID, uploaderEmail string, fileCount int, totalBytes int64) error {
	event := model.UploadEvent{
		ID:            uuid.New().String(),
		LinkID:        linkID,
		UserID:        userID,
		UploaderEmail: uploaderEmail,
		FileCount:     fileCount,
		TotalBytes:    totalBytes,
		Timestamp:     time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.UploadStreamSubject, data)
	return err
}
