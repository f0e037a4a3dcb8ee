package entity

import "time"

type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventProcessed  EventStatus = "processed"
	EventFailed     EventStatus = "failed"
)

// EventRecord is the idempotency ledger entry for a received provider event.
// Exactly one record exists per provider event id, enforced by a unique index;
// records are never deleted so the ledger doubles as an audit trail.
// Lifecycle: pending -> processing -> processed | failed. Processed is terminal;
// a redelivery of a failed event is allowed to retry, since failed means the
// financial effects were not guaranteed applied.
type EventRecord struct {
	EventId    string      `json:"event_id" bson:"event_id"`
	EventType  string      `json:"event_type" bson:"event_type"`
	Status     EventStatus `json:"status" bson:"status"`
	Payload    string      `json:"payload,omitempty" bson:"payload,omitempty"`
	Error      string      `json:"error,omitempty" bson:"error,omitempty"`
	Attempts   int         `json:"attempts" bson:"attempts"`
	ReceivedAt time.Time   `json:"received_at" bson:"received_at"`
	UpdatedAt  time.Time   `json:"updated_at" bson:"updated_at"`
}

// Settled reports whether the record reached a state that must never be
// reprocessed on redelivery.
func (e *EventRecord) Settled() bool {
	return e.Status == EventProcessed || e.Status == EventProcessing
}
