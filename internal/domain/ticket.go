package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is within the enumerated set.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidTicketPriority reports whether p is within the enumerated set.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for customer support requests. ResolvedAt and
// ClosedAt are stamped on every transition into the matching status and are
// never cleared afterwards.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	CategoryID    string
	Status        TicketStatus
	Priority      TicketPriority
	AssignedTo    *string
	CustomerEmail string
	CustomerName  string
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Comment is one entry of a ticket's append-only conversation trail.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// Attachment is file metadata captured at ticket creation. Storage of the
// bytes themselves lives outside this service.
type Attachment struct {
	ID         string
	TicketID   string
	Filename   string
	URL        string
	UploadedAt time.Time
}

// CommentView pairs a comment with its resolved author.
type CommentView struct {
	Comment
	Author *User
}

// TicketView is the denormalized read-side shape: the ticket with category,
// assignee, comments and attachments resolved. Assembled after writes, never
// used on the write path.
type TicketView struct {
	Ticket
	Category    *Category
	Assignee    *User
	Comments    []CommentView
	Attachments []Attachment
}
