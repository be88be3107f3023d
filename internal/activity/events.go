package activity

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeRecorded = "activity.recorded"

// RecordedEvent carries one audit entry over the event bus. Publishers build
// the entry; the activity subscriber persists it.
type RecordedEvent struct {
	ID        string
	Timestamp time.Time
	Entry     Entry
}

func NewRecordedEvent(entry Entry) RecordedEvent {
	return RecordedEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Entry:     entry,
	}
}

func (e RecordedEvent) EventType() string {
	return EventTypeRecorded
}

func (e RecordedEvent) EventID() string {
	return e.ID
}

func (e RecordedEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e RecordedEvent) Payload() interface{} {
	return e.Entry
}
