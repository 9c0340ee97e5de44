package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-manager/internal/api/dto"
	"github.com/spec-kit/ticket-manager/internal/auth"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/service"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

// TicketsHandler serves ticket intake, listing and lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /api/tickets. Unauthenticated: customers submit directly.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachments := make([]service.AttachmentInput, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, service.AttachmentInput{
			Filename: att.Filename,
			URL:      att.URL,
		})
	}
	view, err := h.service.Create(c.UserContext(), service.TicketCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    req.Category,
		Priority:      req.Priority,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Attachments:   attachments,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "ticket created successfully", ticketDetail(view))
}

// List GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input := service.TicketListInput{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("limit"), 10),
	}
	if status := c.Query("status"); status != "" {
		s := domain.TicketStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := domain.TicketPriority(priority)
		input.Priority = &p
	}

	page, err := h.service.List(c.UserContext(), identity, input)
	if err != nil {
		return err
	}

	tickets := make([]dto.TicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		tickets = append(tickets, ticketResponse(&page.Tickets[i]))
	}
	return respond(c, http.StatusOK, "", dto.TicketListResponse{
		Tickets: tickets,
		Pagination: dto.Pagination{
			Page:  page.Page,
			Limit: page.PageSize,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	view, err := h.service.Get(c.UserContext(), c.Params("id"), identity)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", ticketDetail(view))
}

// Update PUT /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.UpdateStatusAndPriority(c.UserContext(), c.Params("id"), identity, service.TicketUpdateInput{
		Status:   req.Status,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ticket updated successfully", ticketDetail(view))
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.AddComment(c.UserContext(), c.Params("id"), identity, req.Content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "comment added successfully", ticketDetail(view))
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
