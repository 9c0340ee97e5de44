package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-manager/internal/access"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/events"
	"github.com/spec-kit/ticket-manager/internal/repository"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

const maxTitleLength = 200

// TicketService coordinates the ticket lifecycle: intake with auto-routing,
// scoped reads and mutations, and the append-only comment trail.
type TicketService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	resolver   *AssignmentResolver
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	Resolver     *AssignmentResolver
	Dispatcher   events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
	}
}

// AttachmentInput defines attachment metadata supplied at creation.
type AttachmentInput struct {
	Filename string
	URL      string
}

// TicketCreateInput describes the customer submission payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	CategoryID    string
	Priority      domain.TicketPriority
	CustomerEmail string
	CustomerName  string
	Attachments   []AttachmentInput
}

// TicketUpdateInput carries the optional mutation fields.
type TicketUpdateInput struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
}

// TicketListInput captures listing filters and pagination.
type TicketListInput struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Page     int
	PageSize int
}

// TicketPage is one page of scoped results.
type TicketPage struct {
	Tickets  []domain.TicketView
	Total    int
	Page     int
	PageSize int
	Pages    int
}

// Create validates a customer submission, routes it to a handler and persists
// it. The referenced category must exist; its active flag is deliberately
// ignored so deactivation stops display, not intake.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.TicketView, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	input.CustomerName = strings.TrimSpace(input.CustomerName)

	details := map[string]any{}
	if input.Title == "" || utf8.RuneCountInString(input.Title) > maxTitleLength {
		details["title"] = "must be 1-200 characters"
	}
	if input.Description == "" {
		details["description"] = "must not be empty"
	}
	if input.CustomerName == "" {
		details["customer_name"] = "must not be empty"
	}
	if !validEmail(input.CustomerEmail) {
		details["customer_email"] = "must be a valid email address"
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	} else if !domain.ValidTicketPriority(input.Priority) {
		details["priority"] = "must be one of low, medium, high, urgent"
	}
	if input.CategoryID == "" {
		details["category"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}

	assignee, err := s.resolver.Resolve(ctx, category.ID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:         input.Title,
		Description:   input.Description,
		CategoryID:    category.ID,
		Status:        domain.TicketStatusOpen,
		Priority:      input.Priority,
		CustomerEmail: input.CustomerEmail,
		CustomerName:  input.CustomerName,
	}
	if assignee != nil {
		ticket.AssignedTo = &assignee.ID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	var attachments []domain.Attachment
	if len(input.Attachments) > 0 {
		records := make([]domain.Attachment, 0, len(input.Attachments))
		for _, att := range input.Attachments {
			records = append(records, domain.Attachment{
				Filename: att.Filename,
				URL:      att.URL,
			})
		}
		attachments, err = s.tickets.AddAttachments(ctx, ticket.ID, records)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			CategoryID:    ticket.CategoryID,
			AssignedTo:    ticket.AssignedTo,
			Priority:      ticket.Priority,
			Title:         ticket.Title,
			CustomerEmail: ticket.CustomerEmail,
		},
	})

	view := &domain.TicketView{
		Ticket:      *ticket,
		Category:    category,
		Assignee:    assignee,
		Comments:    []domain.CommentView{},
		Attachments: attachments,
	}
	return view, nil
}

// Get returns a single ticket with references resolved. A ticket outside the
// actor's scope is reported as absent.
func (s *TicketService) Get(ctx context.Context, ticketID string, actor domain.Identity) (*domain.TicketView, error) {
	scope := access.ScopeFor(actor)
	ticket, err := s.tickets.GetScoped(ctx, ticketID, scope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.assembleDetail(ctx, ticket)
}

// UpdateStatusAndPriority applies the requested field changes through a
// scoped conditional update. Transitions into resolved or closed stamp the
// matching timestamp; repeating a transition re-stamps it.
func (s *TicketService) UpdateStatusAndPriority(ctx context.Context, ticketID string, actor domain.Identity, input TicketUpdateInput) (*domain.TicketView, error) {
	details := map[string]any{}
	if input.Status != nil && !domain.ValidTicketStatus(*input.Status) {
		details["status"] = "must be one of open, in-progress, resolved, closed"
	}
	if input.Priority != nil && !domain.ValidTicketPriority(*input.Priority) {
		details["priority"] = "must be one of low, medium, high, urgent"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details)
	}

	scope := access.ScopeFor(actor)
	previous, err := s.tickets.GetScoped(ctx, ticketID, scope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket, err := s.tickets.UpdateScoped(ctx, ticketID, scope, repository.TicketUpdate{
		Status:   input.Status,
		Priority: input.Priority,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Status != nil && *input.Status != previous.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: previous.Status,
				NewStatus: ticket.Status,
			},
		})
	}
	if input.Priority != nil && *input.Priority != previous.Priority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: previous.Priority,
				NewPriority: ticket.Priority,
			},
		})
	}

	return s.assembleDetail(ctx, ticket)
}

// AddComment appends to the ticket's conversation trail. The append is a
// single scoped insert at the store, so concurrent comments never lose
// writes; comments are never edited or removed afterwards.
func (s *TicketService) AddComment(ctx context.Context, ticketID string, actor domain.Identity, content string) (*domain.TicketView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"content": "must not be empty"})
	}

	scope := access.ScopeFor(actor)
	comment, err := s.tickets.AppendComment(ctx, ticketID, scope, actor.UserID, content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticketID,
		Actor:    actorOf(actor),
		Payload: events.TicketCommentAddedPayload{
			CommentID:      comment.ID,
			AuthorID:       comment.AuthorID,
			ContentPreview: contentPreview(comment.Content, 120),
		},
	})

	return s.Get(ctx, ticketID, actor)
}

// List returns one page of the actor's tickets, newest first. The scope is an
// implicit store-side filter, so totals never count invisible tickets.
func (s *TicketService) List(ctx context.Context, actor domain.Identity, input TicketListInput) (*TicketPage, error) {
	details := map[string]any{}
	if input.Status != nil && !domain.ValidTicketStatus(*input.Status) {
		details["status"] = "must be one of open, in-progress, resolved, closed"
	}
	if input.Priority != nil && !domain.ValidTicketPriority(*input.Priority) {
		details["priority"] = "must be one of low, medium, high, urgent"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details)
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	scope := access.ScopeFor(actor)
	tickets, total, err := s.tickets.ListScoped(ctx, scope, repository.TicketFilter{
		Status:   input.Status,
		Priority: input.Priority,
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	views, err := assembleSummaryViews(ctx, tickets, s.categories, s.users)
	if err != nil {
		return nil, err
	}

	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return &TicketPage{
		Tickets:  views,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

// assembleDetail builds the full read-side view: category, assignee, comments
// with authors, attachments. Pure read path; writes never depend on it.
func (s *TicketService) assembleDetail(ctx context.Context, ticket *domain.Ticket) (*domain.TicketView, error) {
	comments, err := s.tickets.ListComments(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.tickets.ListAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	userIDs := make([]string, 0, len(comments)+1)
	if ticket.AssignedTo != nil {
		userIDs = append(userIDs, *ticket.AssignedTo)
	}
	for _, comment := range comments {
		userIDs = append(userIDs, comment.AuthorID)
	}
	users, err := s.users.GetByIDs(ctx, dedupe(userIDs))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	category, err := s.categories.GetByID(ctx, ticket.CategoryID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	view := &domain.TicketView{
		Ticket:      *ticket,
		Category:    category,
		Comments:    make([]domain.CommentView, 0, len(comments)),
		Attachments: attachments,
	}
	if ticket.AssignedTo != nil {
		if assignee, ok := users[*ticket.AssignedTo]; ok {
			view.Assignee = &assignee
		}
	}
	for _, comment := range comments {
		cv := domain.CommentView{Comment: comment}
		if author, ok := users[comment.AuthorID]; ok {
			cv.Author = &author
		}
		view.Comments = append(view.Comments, cv)
	}
	return view, nil
}

// assembleSummaryViews resolves category and assignee references for a page
// of tickets with two batch lookups. Comments stay out of list views.
func assembleSummaryViews(ctx context.Context, tickets []domain.Ticket, categoryRepo repository.CategoryRepository, userRepo repository.UserRepository) ([]domain.TicketView, error) {
	categoryIDs := make([]string, 0, len(tickets))
	userIDs := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		categoryIDs = append(categoryIDs, ticket.CategoryID)
		if ticket.AssignedTo != nil {
			userIDs = append(userIDs, *ticket.AssignedTo)
		}
	}

	categories, err := categoryRepo.GetByIDs(ctx, dedupe(categoryIDs))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	users, err := userRepo.GetByIDs(ctx, dedupe(userIDs))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	views := make([]domain.TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		view := domain.TicketView{Ticket: ticket}
		if category, ok := categories[ticket.CategoryID]; ok {
			c := category
			view.Category = &c
		}
		if ticket.AssignedTo != nil {
			if assignee, ok := users[*ticket.AssignedTo]; ok {
				u := assignee
				view.Assignee = &u
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorOf(actor domain.Identity) events.Actor {
	userID := actor.UserID
	return events.Actor{UserID: &userID, Role: actor.Role}
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

func contentPreview(content string, max int) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max-3]) + "..."
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
