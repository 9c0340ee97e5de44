package dto

import (
	"time"

	"github.com/spec-kit/ticket-manager/internal/domain"
)

// CreateTicketRequest is the unauthenticated customer submission payload.
type CreateTicketRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      string                `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	CustomerEmail string                `json:"customer_email"`
	CustomerName  string                `json:"customer_name"`
	Attachments   []AttachmentRequest   `json:"attachments"`
}

// AttachmentRequest describes attachment metadata supplied at creation.
type AttachmentRequest struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// UpdateTicketRequest carries optional status/priority changes.
type UpdateTicketRequest struct {
	Status   *domain.TicketStatus   `json:"status"`
	Priority *domain.TicketPriority `json:"priority"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Content string `json:"content"`
}

// TicketResponse is the denormalized ticket shape.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      *CategoryResponse     `json:"category"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    *UserSummary          `json:"assigned_to"`
	CustomerEmail string                `json:"customer_email"`
	CustomerName  string                `json:"customer_name"`
	Attachments   []AttachmentResponse  `json:"attachments,omitempty"`
	Comments      []CommentResponse     `json:"comments,omitempty"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
	ClosedAt      *time.Time            `json:"closed_at"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CommentResponse is one entry of the conversation trail.
type CommentResponse struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Author    *UserSummary `json:"author"`
	CreatedAt time.Time    `json:"created_at"`
}

// Pagination describes one page of results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// TicketListResponse is the paginated listing body.
type TicketListResponse struct {
	Tickets    []TicketResponse `json:"tickets"`
	Pagination Pagination       `json:"pagination"`
}
