package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ticket-manager/internal/access"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/events"
	"github.com/spec-kit/ticket-manager/internal/repository"
)

// fakeClock hands out strictly increasing timestamps so ordering assertions
// are deterministic.
type fakeClock struct {
	mu   sync.Mutex
	base time.Time
	seq  int
}

func newFakeClock() *fakeClock {
	return &fakeClock{base: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.base.Add(time.Duration(c.seq) * time.Second)
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	clock      *fakeClock
	categories map[string]domain.Category
	seq        int
}

func newFakeCategoryRepo(clock *fakeClock) *fakeCategoryRepo {
	return &fakeCategoryRepo{clock: clock, categories: map[string]domain.Category{}}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "categories_name_key"}
		}
	}
	r.seq++
	category.ID = fmt.Sprintf("category-%d", r.seq)
	now := r.clock.next()
	category.CreatedAt = now
	category.UpdatedAt = now
	r.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) Deactivate(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	category.IsActive = false
	category.UpdatedAt = r.clock.next()
	r.categories[id] = category
	return &category, nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *fakeCategoryRepo) GetByIDs(_ context.Context, ids []string) (map[string]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string]domain.Category, len(ids))
	for _, id := range ids {
		if category, ok := r.categories[id]; ok {
			result[id] = category
		}
	}
	return result, nil
}

func (r *fakeCategoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := make([]domain.Category, 0, len(r.categories))
	for _, category := range r.categories {
		if category.IsActive {
			active = append(active, category)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].Name < active[j].Name
	})
	return active, nil
}

func (r *fakeCategoryRepo) CountActive(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, category := range r.categories {
		if category.IsActive {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	clock *fakeClock
	users map[string]domain.User
	seq   int
}

func newFakeUserRepo(clock *fakeClock) *fakeUserRepo {
	return &fakeUserRepo{clock: clock, users: map[string]domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.Email = strings.ToLower(user.Email)
	now := r.clock.next()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

func (r *fakeUserRepo) FirstActiveAdmin(_ context.Context, categoryID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := make([]domain.User, 0)
	for _, user := range r.users {
		if user.Role != domain.RoleAdmin || !user.IsActive {
			continue
		}
		if user.CategoryID == nil || *user.CategoryID != categoryID {
			continue
		}
		candidates = append(candidates, user)
	}
	if len(candidates) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	first := candidates[0]
	return &first, nil
}

func (r *fakeUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastLoginAt = &at
	r.users[id] = user
	return nil
}

type fakeTicketRepo struct {
	mu          sync.Mutex
	clock       *fakeClock
	categories  *fakeCategoryRepo
	tickets     map[string]domain.Ticket
	comments    map[string][]domain.Comment
	attachments map[string][]domain.Attachment
	seq         int
	commentSeq  int
}

func newFakeTicketRepo(clock *fakeClock, categories *fakeCategoryRepo) *fakeTicketRepo {
	return &fakeTicketRepo{
		clock:       clock,
		categories:  categories,
		tickets:     map[string]domain.Ticket{},
		comments:    map[string][]domain.Comment{},
		attachments: map[string][]domain.Attachment{},
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	now := r.clock.next()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) AddAttachments(_ context.Context, ticketID string, attachments []domain.Attachment) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]domain.Attachment, 0, len(attachments))
	for _, att := range attachments {
		r.commentSeq++
		att.ID = fmt.Sprintf("attachment-%d", r.commentSeq)
		att.TicketID = ticketID
		att.UploadedAt = r.clock.next()
		stored = append(stored, att)
	}
	r.attachments[ticketID] = append(r.attachments[ticketID], stored...)
	return stored, nil
}

func (r *fakeTicketRepo) GetScoped(_ context.Context, id string, scope access.Scope) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || !scope.Allows(&ticket) {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) UpdateScoped(_ context.Context, id string, scope access.Scope, update repository.TicketUpdate) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || !scope.Allows(&ticket) {
		return nil, pgx.ErrNoRows
	}
	now := r.clock.next()
	if update.Status != nil {
		ticket.Status = *update.Status
		switch *update.Status {
		case domain.TicketStatusResolved:
			ticket.ResolvedAt = &now
		case domain.TicketStatusClosed:
			ticket.ClosedAt = &now
		}
	}
	if update.Priority != nil {
		ticket.Priority = *update.Priority
	}
	ticket.UpdatedAt = now
	r.tickets[id] = ticket
	return &ticket, nil
}

func (r *fakeTicketRepo) AppendComment(_ context.Context, ticketID string, scope access.Scope, authorID, content string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketID]
	if !ok || !scope.Allows(&ticket) {
		return nil, pgx.ErrNoRows
	}
	r.commentSeq++
	comment := domain.Comment{
		ID:        fmt.Sprintf("comment-%d", r.commentSeq),
		TicketID:  ticketID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: r.clock.next(),
	}
	r.comments[ticketID] = append(r.comments[ticketID], comment)
	ticket.UpdatedAt = comment.CreatedAt
	r.tickets[ticketID] = ticket
	return &comment, nil
}

func (r *fakeTicketRepo) ListScoped(_ context.Context, scope access.Scope, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.visible(scope)
	filtered := make([]domain.Ticket, 0, len(matched))
	for _, ticket := range matched {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		filtered = append(filtered, ticket)
	}
	total := len(filtered)
	if filter.Offset >= len(filtered) {
		return []domain.Ticket{}, total, nil
	}
	filtered = filtered[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[:filter.Limit]
	}
	return filtered, total, nil
}

func (r *fakeTicketRepo) ListComments(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Comment{}, r.comments[ticketID]...), nil
}

func (r *fakeTicketRepo) ListAttachments(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Attachment{}, r.attachments[ticketID]...), nil
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context, scope access.Scope) (repository.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := repository.StatusCounts{}
	for _, ticket := range r.visible(scope) {
		counts.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			counts.Open++
		case domain.TicketStatusInProgress:
			counts.InProgress++
		case domain.TicketStatusResolved:
			counts.Resolved++
		case domain.TicketStatusClosed:
			counts.Closed++
		}
	}
	return counts, nil
}

func (r *fakeTicketRepo) PriorityCounts(_ context.Context, scope access.Scope) (map[domain.TicketPriority]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.TicketPriority]int{}
	for _, ticket := range r.visible(scope) {
		counts[ticket.Priority]++
	}
	return counts, nil
}

func (r *fakeTicketRepo) ListRecent(_ context.Context, scope access.Scope, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	visible := r.visible(scope)
	if limit > 0 && limit < len(visible) {
		visible = visible[:limit]
	}
	return visible, nil
}

func (r *fakeTicketRepo) CountByCategory(_ context.Context) ([]repository.CategoryTicketCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, ticket := range r.tickets {
		counts[ticket.CategoryID]++
	}
	rows := make([]repository.CategoryTicketCount, 0, len(counts))
	for categoryID, count := range counts {
		row := repository.CategoryTicketCount{CategoryID: categoryID, Count: count}
		if r.categories != nil {
			if category, ok := r.categories.categories[categoryID]; ok {
				row.Name = category.Name
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return rows, nil
}

// visible returns in-scope tickets newest first. Callers hold the lock.
func (r *fakeTicketRepo) visible(scope access.Scope) []domain.Ticket {
	visible := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if scope.Allows(&ticket) {
			visible = append(visible, ticket)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].CreatedAt.After(visible[j].CreatedAt) })
	return visible
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	matched := make([]events.Event, 0)
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// fixture wires the service layer against in-memory stores with one seeded
// category, its admin, a second category with admin and a superadmin.
type fixture struct {
	clock      *fakeClock
	categories *fakeCategoryRepo
	users      *fakeUserRepo
	tickets    *fakeTicketRepo
	dispatcher *recordingDispatcher
	service    *TicketService

	techCategory    *domain.Category
	billingCategory *domain.Category
	techAdmin       *domain.User
	billingAdmin    *domain.User
	superadmin      *domain.User
}

func newFixture() *fixture {
	clock := newFakeClock()
	categories := newFakeCategoryRepo(clock)
	users := newFakeUserRepo(clock)
	tickets := newFakeTicketRepo(clock, categories)
	dispatcher := &recordingDispatcher{}

	f := &fixture{
		clock:      clock,
		categories: categories,
		users:      users,
		tickets:    tickets,
		dispatcher: dispatcher,
	}
	f.service = NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		CategoryRepo: categories,
		UserRepo:     users,
		Resolver:     NewAssignmentResolver(users),
		Dispatcher:   dispatcher,
	})

	ctx := context.Background()
	f.techCategory = &domain.Category{Name: "Technical Support", IsActive: true, Priority: 1, ColorTag: "#EF4444"}
	_ = categories.Create(ctx, f.techCategory)
	f.billingCategory = &domain.Category{Name: "Billing", IsActive: true, Priority: 2, ColorTag: "#10B981"}
	_ = categories.Create(ctx, f.billingCategory)

	f.techAdmin = &domain.User{Email: "tech@example.com", Role: domain.RoleAdmin, CategoryID: &f.techCategory.ID, IsActive: true, FirstName: "John", LastName: "Tech"}
	_ = users.Create(ctx, f.techAdmin)
	f.billingAdmin = &domain.User{Email: "billing@example.com", Role: domain.RoleAdmin, CategoryID: &f.billingCategory.ID, IsActive: true, FirstName: "Sarah", LastName: "Billing"}
	_ = users.Create(ctx, f.billingAdmin)
	f.superadmin = &domain.User{Email: "superadmin@example.com", Role: domain.RoleSuperadmin, IsActive: true, FirstName: "Admin", LastName: "Super"}
	_ = users.Create(ctx, f.superadmin)

	return f
}

func (f *fixture) identity(user *domain.User) domain.Identity {
	return domain.IdentityOf(user)
}

func (f *fixture) createTicket(ctx context.Context, categoryID string) *domain.TicketView {
	view, err := f.service.Create(ctx, TicketCreateInput{
		Title:         "Printer on fire",
		Description:   "It is printing and also on fire.",
		CategoryID:    categoryID,
		CustomerEmail: "customer@example.com",
		CustomerName:  "Casey Customer",
	})
	if err != nil {
		panic(err)
	}
	return view
}
