// Package access computes the visibility predicate applied to every ticket
// read and mutation. The predicate is rendered into the store query rather
// than filtered after retrieval, so pagination counts cannot leak the
// existence of tickets outside an actor's scope.
package access

import (
	"fmt"

	"github.com/spec-kit/ticket-manager/internal/domain"
)

// Scope restricts which tickets an actor may see or mutate.
type Scope struct {
	// All grants unrestricted access (superadmin).
	All bool
	// AssignedTo limits access to tickets assigned to this user id.
	AssignedTo string
}

// ScopeFor derives the ticket scope from an authenticated identity. A
// superadmin sees every ticket; an admin sees only tickets currently assigned
// to them. Scoping keys off assignment, not category: a category's tickets
// routed to nobody are visible to superadmins alone.
func ScopeFor(actor domain.Identity) Scope {
	if actor.Role == domain.RoleSuperadmin {
		return Scope{All: true}
	}
	return Scope{AssignedTo: actor.UserID}
}

// Allows evaluates the predicate against a single ticket. Store queries embed
// the equivalent SQL via Clause; this form exists for in-memory evaluation.
func (s Scope) Allows(t *domain.Ticket) bool {
	if s.All {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == s.AssignedTo
}

// Clause renders the predicate as a SQL fragment. args is the query's argument
// slice so far; the returned slice includes any bound values. An unrestricted
// scope renders to "TRUE" to keep callers free of special cases.
func (s Scope) Clause(args []any) (string, []any) {
	if s.All {
		return "TRUE", args
	}
	args = append(args, s.AssignedTo)
	return fmt.Sprintf("assigned_to = $%d", len(args)), args
}
