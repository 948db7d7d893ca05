package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventStatus tracks an outbox row from insert until it reaches the queue.
type EventStatus string

const (
	// EventStatusPending rows are picked up by the outbox worker.
	EventStatusPending EventStatus = "pending"
	// EventStatusProcessed rows were published to SQS.
	EventStatusProcessed EventStatus = "processed"
	// EventStatusFailed rows could not be published and are not retried.
	EventStatusFailed EventStatus = "failed"
)

// Event is an outbox row written in the same transaction as the product change it announces.
// EventType is one of product.created, product.deleted or product.price_dropped, and EventData holds
// the JSON encoded sqs.ProductMessage that is published unchanged. For price drops the message
// also carries the old price and the alert recipients resolved when the drop was recorded.
type Event struct {
	ID          uuid.UUID
	EventType   string
	EventData   json.RawMessage
	Status      EventStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// InitMeta assigns a fresh ID and creation time. A missing status defaults to pending.
func (e *Event) InitMeta() {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = EventStatusPending
	}
}
