package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-manager/internal/api/dto"
	"github.com/spec-kit/ticket-manager/internal/domain"
)

// respond writes the success envelope shared by all endpoints.
func respond(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func categoryResponse(category *domain.Category) *dto.CategoryResponse {
	if category == nil {
		return nil
	}
	return &dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Color:       category.ColorTag,
		IsActive:    category.IsActive,
		Priority:    category.Priority,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

func userSummary(user *domain.User) *dto.UserSummary {
	if user == nil {
		return nil
	}
	return &dto.UserSummary{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func userResponse(user *domain.User, category *domain.Category) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		Category:    categoryResponse(category),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
	}
}

// ticketResponse maps a summary view: no comments or attachments.
func ticketResponse(view *domain.TicketView) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            view.ID,
		Title:         view.Title,
		Description:   view.Description,
		Category:      categoryResponse(view.Category),
		Status:        view.Status,
		Priority:      view.Priority,
		AssignedTo:    userSummary(view.Assignee),
		CustomerEmail: view.CustomerEmail,
		CustomerName:  view.CustomerName,
		ResolvedAt:    view.ResolvedAt,
		ClosedAt:      view.ClosedAt,
		CreatedAt:     view.CreatedAt,
		UpdatedAt:     view.UpdatedAt,
	}
}

// ticketDetail extends the summary with the conversation trail and attachments.
func ticketDetail(view *domain.TicketView) dto.TicketResponse {
	resp := ticketResponse(view)
	resp.Comments = make([]dto.CommentResponse, 0, len(view.Comments))
	for i := range view.Comments {
		comment := &view.Comments[i]
		resp.Comments = append(resp.Comments, dto.CommentResponse{
			ID:        comment.ID,
			Content:   comment.Content,
			Author:    userSummary(comment.Author),
			CreatedAt: comment.CreatedAt,
		})
	}
	resp.Attachments = make([]dto.AttachmentResponse, 0, len(view.Attachments))
	for _, att := range view.Attachments {
		resp.Attachments = append(resp.Attachments, dto.AttachmentResponse{
			ID:         att.ID,
			Filename:   att.Filename,
			URL:        att.URL,
			UploadedAt: att.UploadedAt,
		})
	}
	return resp
}
