package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-manager/internal/api/dto"
	"github.com/spec-kit/ticket-manager/internal/auth"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/service"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

// DashboardHandler serves the triage overview endpoint.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboardService}
}

// priorityOrder fixes the histogram order regardless of map iteration.
var priorityOrder = []domain.TicketPriority{
	domain.TicketPriorityLow,
	domain.TicketPriorityMedium,
	domain.TicketPriorityHigh,
	domain.TicketPriorityUrgent,
}

// Stats GET /api/dashboard.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.service.Stats(c.UserContext(), identity)
	if err != nil {
		return err
	}

	resp := dto.DashboardStatsResponse{
		Stats: dto.StatusCountsResponse{
			Total:           stats.Counts.Total,
			Open:            stats.Counts.Open,
			InProgress:      stats.Counts.InProgress,
			Resolved:        stats.Counts.Resolved,
			Closed:          stats.Counts.Closed,
			TotalCategories: stats.ActiveCategories,
		},
		PriorityStats: make([]dto.PriorityCountResponse, 0, len(priorityOrder)),
		RecentTickets: make([]dto.TicketResponse, 0, len(stats.RecentTickets)),
	}
	for _, priority := range priorityOrder {
		resp.PriorityStats = append(resp.PriorityStats, dto.PriorityCountResponse{
			Priority: string(priority),
			Count:    stats.PriorityCounts[priority],
		})
	}
	for i := range stats.RecentTickets {
		resp.RecentTickets = append(resp.RecentTickets, ticketResponse(&stats.RecentTickets[i]))
	}
	for _, row := range stats.CategoryBreakdown {
		resp.CategoryStats = append(resp.CategoryStats, dto.CategoryCountResponse{
			CategoryID: row.CategoryID,
			Name:       row.Name,
			Count:      row.Count,
		})
	}
	return respond(c, http.StatusOK, "", resp)
}
