package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ServiceName  = "poll-service"
	EventVersion = "1.0"
)

type EventType string

const (
	EventPollCreated       EventType = "poll.created"
	EventPollDeleted       EventType = "poll.deleted"
	EventResponseSubmitted EventType = "response.submitted"
	EventResponseUpdated   EventType = "response.updated"
	EventSummaryExported   EventType = "summary.exported"
)

// Event is the envelope published for every domain event
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    ServiceName,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type PollCreatedEvent struct {
	PollID   uint       `json:"poll_id"`
	Title    string     `json:"title"`
	StaffID  uint       `json:"staff_id"`
	ClassID  uint       `json:"class_id"`
	Category string     `json:"poll_category"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type PollDeletedEvent struct {
	PollID    uint   `json:"poll_id"`
	ClassID   uint   `json:"class_id"`
	DeletedBy uint   `json:"deleted_by"`
	Reason    string `json:"reason,omitempty"`
}

type ResponseEvent struct {
	ResponseID   uint   `json:"response_id"`
	PollID       uint   `json:"poll_id"`
	StudentRegNo string `json:"student_reg_no"`
	OptionIndex  *int   `json:"option_index,omitempty"`
}

type SummaryExportedEvent struct {
	Scope    string `json:"scope"`
	Subject  string `json:"subject"`
	Filename string `json:"filename"`
	StaffID  uint   `json:"staff_id"`
}
