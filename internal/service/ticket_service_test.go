package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/events"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestTicketCreateAssignsFirstActiveAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.service.Create(ctx, TicketCreateInput{
		Title:         "Cannot log in",
		Description:   "Password reset loop.",
		CategoryID:    f.techCategory.ID,
		CustomerEmail: "customer@example.com",
		CustomerName:  "Casey Customer",
	})
	require.NoError(t, err)

	require.Equal(t, domain.TicketStatusOpen, view.Status)
	require.Equal(t, domain.TicketPriorityMedium, view.Priority, "priority defaults to medium")
	require.NotNil(t, view.AssignedTo)
	require.Equal(t, f.techAdmin.ID, *view.AssignedTo)
	require.NotNil(t, view.Assignee)
	require.Equal(t, f.techAdmin.Email, view.Assignee.Email)
	require.Nil(t, view.ResolvedAt)
	require.Nil(t, view.ClosedAt)

	created := f.dispatcher.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	require.Equal(t, view.ID, created[0].TicketID)
}

func TestTicketCreateUnassignedWhenCategoryHasNoAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	orphan := &domain.Category{Name: "Feature Request", IsActive: true, Priority: 3}
	require.NoError(t, f.categories.Create(ctx, orphan))

	view := f.createTicket(ctx, orphan.ID)
	require.Nil(t, view.AssignedTo, "no eligible admin leaves the ticket unassigned")
	require.Nil(t, view.Assignee)
	require.Equal(t, domain.TicketStatusOpen, view.Status)
}

func TestTicketCreateSkipsInactiveAdmins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	second := &domain.User{Email: "tech2@example.com", Role: domain.RoleAdmin, CategoryID: &f.techCategory.ID, IsActive: true}
	require.NoError(t, f.users.Create(ctx, second))

	// Deactivate the earliest admin; routing falls through to the next one.
	deactivated := f.users.users[f.techAdmin.ID]
	deactivated.IsActive = false
	f.users.users[f.techAdmin.ID] = deactivated

	view := f.createTicket(ctx, f.techCategory.ID)
	require.NotNil(t, view.AssignedTo)
	require.Equal(t, second.ID, *view.AssignedTo)
}

func TestTicketCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, TicketCreateInput{
		Title:         strings.Repeat("x", 201),
		Description:   "",
		CategoryID:    "",
		Priority:      "critical",
		CustomerEmail: "not-an-email",
		CustomerName:  "  ",
	})
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Contains(t, domainErr.Details, "title")
	require.Contains(t, domainErr.Details, "description")
	require.Contains(t, domainErr.Details, "customer_name")
	require.Contains(t, domainErr.Details, "customer_email")
	require.Contains(t, domainErr.Details, "priority")
	require.Contains(t, domainErr.Details, "category")
}

func TestTicketCreateUnknownCategory(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), TicketCreateInput{
		Title:         "Hello",
		Description:   "World",
		CategoryID:    "category-missing",
		CustomerEmail: "customer@example.com",
		CustomerName:  "Casey",
	})
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestTicketCreateIntoDeactivatedCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.categories.Deactivate(ctx, f.techCategory.ID)
	require.NoError(t, err)

	// Deactivation stops display, not intake.
	view := f.createTicket(ctx, f.techCategory.ID)
	require.Equal(t, f.techCategory.ID, view.CategoryID)
}

func TestTicketGetScopedVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)

	got, err := f.service.Get(ctx, view.ID, f.identity(f.techAdmin))
	require.NoError(t, err)
	require.Equal(t, view.ID, got.ID)

	got, err = f.service.Get(ctx, view.ID, f.identity(f.superadmin))
	require.NoError(t, err)
	require.Equal(t, view.ID, got.ID)

	// Another admin's ticket reads as absent, not forbidden.
	_, err = f.service.Get(ctx, view.ID, f.identity(f.billingAdmin))
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestTicketUpdateStampsResolutionTimestamps(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)
	actor := f.identity(f.techAdmin)

	resolved := domain.TicketStatusResolved
	updated, err := f.service.UpdateStatusAndPriority(ctx, view.ID, actor, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	require.Nil(t, updated.ClosedAt)
	firstStamp := *updated.ResolvedAt

	// Reopen, then resolve again: the stamp moves forward, it is not frozen.
	open := domain.TicketStatusOpen
	updated, err = f.service.UpdateStatusAndPriority(ctx, view.ID, actor, TicketUpdateInput{Status: &open})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt, "reopening never clears resolved_at")

	updated, err = f.service.UpdateStatusAndPriority(ctx, view.ID, actor, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.True(t, updated.ResolvedAt.After(firstStamp))
}

func TestTicketUpdateClosedStampsOnlyClosedAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)

	closed := domain.TicketStatusClosed
	updated, err := f.service.UpdateStatusAndPriority(ctx, view.ID, f.identity(f.techAdmin), TicketUpdateInput{Status: &closed})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedAt)
	require.Nil(t, updated.ResolvedAt, "skipping resolved leaves resolved_at empty")
}

func TestTicketUpdateScopeDenied(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)

	closed := domain.TicketStatusClosed
	_, err := f.service.UpdateStatusAndPriority(ctx, view.ID, f.identity(f.billingAdmin), TicketUpdateInput{Status: &closed})
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", domainCode(t, err))

	// The denied update left the ticket untouched.
	got, err := f.service.Get(ctx, view.ID, f.identity(f.techAdmin))
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, got.Status)
	require.Nil(t, got.ClosedAt)
}

func TestTicketUpdateValidatesEnums(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)

	bad := domain.TicketStatus("escalated")
	_, err := f.service.UpdateStatusAndPriority(ctx, view.ID, f.identity(f.techAdmin), TicketUpdateInput{Status: &bad})
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestTicketUpdatePublishesChangeEvents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)
	actor := f.identity(f.techAdmin)

	inProgress := domain.TicketStatusInProgress
	high := domain.TicketPriorityHigh
	_, err := f.service.UpdateStatusAndPriority(ctx, view.ID, actor, TicketUpdateInput{Status: &inProgress, Priority: &high})
	require.NoError(t, err)

	statusEvents := f.dispatcher.byType(events.EventTicketStatusChanged)
	require.Len(t, statusEvents, 1)
	payload, ok := statusEvents[0].Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	require.Equal(t, domain.TicketStatusOpen, payload.OldStatus)
	require.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)
	require.Len(t, f.dispatcher.byType(events.EventTicketPriorityChanged), 1)

	// Re-submitting the same values is a no-op for events.
	_, err = f.service.UpdateStatusAndPriority(ctx, view.ID, actor, TicketUpdateInput{Status: &inProgress, Priority: &high})
	require.NoError(t, err)
	require.Len(t, f.dispatcher.byType(events.EventTicketStatusChanged), 1)
	require.Len(t, f.dispatcher.byType(events.EventTicketPriorityChanged), 1)
}

func TestAddCommentAppendsInOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)
	actor := f.identity(f.techAdmin)

	for i := 1; i <= 5; i++ {
		_, err := f.service.AddComment(ctx, view.ID, actor, fmt.Sprintf("update %d", i))
		require.NoError(t, err)
	}

	got, err := f.service.Get(ctx, view.ID, actor)
	require.NoError(t, err)
	require.Len(t, got.Comments, 5)
	for i, comment := range got.Comments {
		require.Equal(t, fmt.Sprintf("update %d", i+1), comment.Content)
		require.NotNil(t, comment.Author)
		require.Equal(t, f.techAdmin.ID, comment.Author.ID)
		if i > 0 {
			require.True(t, comment.CreatedAt.After(got.Comments[i-1].CreatedAt))
		}
	}
}

func TestAddCommentValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)

	_, err := f.service.AddComment(ctx, view.ID, f.identity(f.techAdmin), "   ")
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestAddCommentScopeDenied(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)

	_, err := f.service.AddComment(ctx, view.ID, f.identity(f.billingAdmin), "sneaky note")
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", domainCode(t, err))

	got, err := f.service.Get(ctx, view.ID, f.identity(f.techAdmin))
	require.NoError(t, err)
	require.Empty(t, got.Comments)
}

func TestTicketListPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		f.createTicket(ctx, f.techCategory.ID)
	}

	page, err := f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 25, page.Total)
	require.Equal(t, 3, page.Pages)
	require.Equal(t, 2, page.Page)
	require.Len(t, page.Tickets, 10)

	// Newest first, so page two starts after the ten most recent.
	full, err := f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{Page: 1, PageSize: 25})
	require.NoError(t, err)
	require.Equal(t, full.Tickets[10].ID, page.Tickets[0].ID)

	last, err := f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{Page: 3, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, last.Tickets, 5)

	defaults, err := f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{})
	require.NoError(t, err)
	require.Equal(t, 1, defaults.Page)
	require.Equal(t, 10, defaults.PageSize)
}

func TestTicketListScopesTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.createTicket(ctx, f.techCategory.ID)
	}
	for i := 0; i < 2; i++ {
		f.createTicket(ctx, f.billingCategory.ID)
	}

	techPage, err := f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{})
	require.NoError(t, err)
	require.Equal(t, 3, techPage.Total, "totals never count invisible tickets")
	for _, ticket := range techPage.Tickets {
		require.Equal(t, f.techAdmin.ID, *ticket.AssignedTo)
	}

	allPage, err := f.service.List(ctx, f.identity(f.superadmin), TicketListInput{})
	require.NoError(t, err)
	require.Equal(t, 5, allPage.Total)
}

func TestTicketListFilters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.createTicket(ctx, f.techCategory.ID)
	f.createTicket(ctx, f.techCategory.ID)

	resolved := domain.TicketStatusResolved
	_, err := f.service.UpdateStatusAndPriority(ctx, view.ID, f.identity(f.techAdmin), TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)

	page, err := f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{Status: &resolved})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, view.ID, page.Tickets[0].ID)

	bad := domain.TicketStatus("archived")
	_, err = f.service.List(ctx, f.identity(f.techAdmin), TicketListInput{Status: &bad})
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}
