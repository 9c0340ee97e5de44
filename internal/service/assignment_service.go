package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/repository"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

// AssignmentResolver picks the handler for a newly created ticket. Routing is
// a pure lookup: the earliest-created active admin bound to the ticket's
// category. The same category always resolves to the same admin until
// handlers change.
type AssignmentResolver struct {
	users repository.UserRepository
}

// NewAssignmentResolver creates the resolver.
func NewAssignmentResolver(users repository.UserRepository) *AssignmentResolver {
	return &AssignmentResolver{users: users}
}

// Resolve returns the handler for categoryID, or nil when the category has no
// eligible admin. An unmatched category is not an error: the ticket is created
// unassigned and only superadmins can reach it.
func (r *AssignmentResolver) Resolve(ctx context.Context, categoryID string) (*domain.User, error) {
	admin, err := r.users.FirstActiveAdmin(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}
