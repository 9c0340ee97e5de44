package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-manager/internal/api/dto"
	"github.com/spec-kit/ticket-manager/internal/auth"
	"github.com/spec-kit/ticket-manager/internal/service"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

// CategoriesHandler serves the routing-bucket registry endpoints.
type CategoriesHandler struct {
	service *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categoryService *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{service: categoryService}
}

// List GET /api/categories. Public: the submission form needs it.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.service.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, *categoryResponse(&categories[i]))
	}
	return respond(c, http.StatusOK, "", items)
}

// Create POST /api/categories. Superadmin only.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.Create(c.UserContext(), identity, service.CategoryCreateInput{
		Name:        req.Name,
		Description: req.Description,
		ColorTag:    req.Color,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "category created successfully", categoryResponse(category))
}

// Deactivate PUT /api/categories/:id/deactivate. Superadmin only.
func (h *CategoriesHandler) Deactivate(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	category, err := h.service.Deactivate(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "category deactivated successfully", categoryResponse(category))
}
