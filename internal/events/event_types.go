package events

import (
	"time"

	"github.com/spec-kit/ticket-manager/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventCategoryCreated       EventType = "category_created"
)

// Actor encapsulates actor metadata for an event. Customer-submitted tickets
// carry no user id.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CategoryID    string                `json:"category_id"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
	Priority      domain.TicketPriority `json:"priority"`
	Title         string                `json:"title"`
	CustomerEmail string                `json:"customer_email"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID      string `json:"comment_id"`
	AuthorID       string `json:"author_id"`
	ContentPreview string `json:"content_preview"`
}

// CategoryCreatedPayload payload.
type CategoryCreatedPayload struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}
