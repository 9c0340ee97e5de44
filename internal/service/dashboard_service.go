package service

import (
	"context"

	"github.com/spec-kit/ticket-manager/internal/access"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/repository"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

const recentTicketLimit = 5

// DashboardService derives triage aggregates under the caller's access scope.
// Nothing is cached: every call recomputes from current ticket state.
type DashboardService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
	}
}

// DashboardStats is the aggregate snapshot for one actor.
type DashboardStats struct {
	Counts           repository.StatusCounts
	ActiveCategories int
	PriorityCounts   map[domain.TicketPriority]int
	RecentTickets    []domain.TicketView
	// CategoryBreakdown is populated for superadmins only. It is unscoped:
	// nobody else reaches it.
	CategoryBreakdown []repository.CategoryTicketCount
}

// Stats computes the dashboard for the given actor.
func (s *DashboardService) Stats(ctx context.Context, actor domain.Identity) (*DashboardStats, error) {
	scope := access.ScopeFor(actor)

	counts, err := s.tickets.CountByStatus(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	activeCategories, err := s.categories.CountActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	priorities, err := s.tickets.PriorityCounts(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	recent, err := s.tickets.ListRecent(ctx, scope, recentTicketLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	recentViews, err := assembleSummaryViews(ctx, recent, s.categories, s.users)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Counts:           counts,
		ActiveCategories: activeCategories,
		PriorityCounts:   priorities,
		RecentTickets:    recentViews,
	}

	if actor.Role == domain.RoleSuperadmin {
		breakdown, err := s.tickets.CountByCategory(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		stats.CategoryBreakdown = breakdown
	}

	return stats, nil
}
