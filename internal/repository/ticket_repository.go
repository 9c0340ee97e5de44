package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-manager/internal/access"
	"github.com/spec-kit/ticket-manager/internal/domain"
)

// TicketFilter captures optional listing filters applied on top of the
// caller's access scope.
type TicketFilter struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Limit    int
	Offset   int
}

// TicketUpdate carries the mutable ticket fields. Nil means leave unchanged.
type TicketUpdate struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
}

// StatusCounts aggregates ticket totals per lifecycle state.
type StatusCounts struct {
	Total      int
	Open       int
	InProgress int
	Resolved   int
	Closed     int
}

// CategoryTicketCount is one row of the per-category breakdown.
type CategoryTicketCount struct {
	CategoryID string
	Name       string
	Count      int
}

// TicketRepository encapsulates ticket persistence. Every read and mutation
// that takes a scope embeds it in the query itself, so out-of-scope tickets
// behave exactly like absent ones.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	AddAttachments(ctx context.Context, ticketID string, attachments []domain.Attachment) ([]domain.Attachment, error)
	GetScoped(ctx context.Context, id string, scope access.Scope) (*domain.Ticket, error)
	UpdateScoped(ctx context.Context, id string, scope access.Scope, update TicketUpdate) (*domain.Ticket, error)
	AppendComment(ctx context.Context, ticketID string, scope access.Scope, authorID, content string) (*domain.Comment, error)
	ListScoped(ctx context.Context, scope access.Scope, filter TicketFilter) ([]domain.Ticket, int, error)
	ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error)
	ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	CountByStatus(ctx context.Context, scope access.Scope) (StatusCounts, error)
	PriorityCounts(ctx context.Context, scope access.Scope) (map[domain.TicketPriority]int, error)
	ListRecent(ctx context.Context, scope access.Scope, limit int) ([]domain.Ticket, error)
	CountByCategory(ctx context.Context) ([]CategoryTicketCount, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, category_id, status, priority, assigned_to,
               customer_email, customer_name, resolved_at, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category_id, status, priority, assigned_to, customer_email, customer_name)
        VALUES ($1,$2,$3,$4,$5,$6,LOWER($7),$8)
        RETURNING id, customer_email, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.CategoryID,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.CustomerEmail,
		ticket.CustomerName,
	).Scan(&ticket.ID, &ticket.CustomerEmail, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) AddAttachments(ctx context.Context, ticketID string, attachments []domain.Attachment) ([]domain.Attachment, error) {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, filename, url)
        VALUES ($1,$2,$3)
        RETURNING id, uploaded_at`
	result := make([]domain.Attachment, 0, len(attachments))
	for _, att := range attachments {
		att.TicketID = ticketID
		if err := r.pool.QueryRow(ctx, query, ticketID, att.Filename, att.URL).
			Scan(&att.ID, &att.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, nil
}

func (r *ticketRepository) GetScoped(ctx context.Context, id string, scope access.Scope) (*domain.Ticket, error) {
	args := []any{id}
	clause, args := scope.Clause(args)
	query := fmt.Sprintf(`
        SELECT `+ticketColumns+`
        FROM tickets WHERE id=$1 AND %s`, clause)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateScoped applies a conditional single-statement update. A transition
// into resolved or closed stamps the matching timestamp; timestamps are never
// cleared, even on a repeated or backwards transition.
func (r *ticketRepository) UpdateScoped(ctx context.Context, id string, scope access.Scope, update TicketUpdate) (*domain.Ticket, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{id}

	if update.Status != nil {
		args = append(args, *update.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
		switch *update.Status {
		case domain.TicketStatusResolved:
			sets = append(sets, "resolved_at=NOW()")
		case domain.TicketStatusClosed:
			sets = append(sets, "closed_at=NOW()")
		}
	}
	if update.Priority != nil {
		args = append(args, *update.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}

	clause, args := scope.Clause(args)
	query := fmt.Sprintf(`
        UPDATE tickets SET %s
        WHERE id=$1 AND %s
        RETURNING `+ticketColumns, strings.Join(sets, ", "), clause)

	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// AppendComment inserts one comment guarded by the caller's scope, bumping the
// ticket's updated_at in the same statement. Concurrent appends on one ticket
// are independent inserts, so neither can overwrite the other.
func (r *ticketRepository) AppendComment(ctx context.Context, ticketID string, scope access.Scope, authorID, content string) (*domain.Comment, error) {
	args := []any{ticketID, authorID, content}
	clause, args := scope.Clause(args)
	query := fmt.Sprintf(`
        WITH target AS (
            UPDATE tickets SET updated_at=NOW()
            WHERE id=$1 AND %s
            RETURNING id
        )
        INSERT INTO ticket_comments (ticket_id, author_id, content)
        SELECT id, $2, $3 FROM target
        RETURNING id, created_at`, clause)

	comment := domain.Comment{
		TicketID: ticketID,
		AuthorID: authorID,
		Content:  content,
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *ticketRepository) ListScoped(ctx context.Context, scope access.Scope, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{}
	args := []any{}

	clause, args := scope.Clause(args)
	clauses = append(clauses, clause)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT `+ticketColumns+`
        FROM tickets WHERE %s
        ORDER BY created_at DESC
        LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_id, content, created_at
        FROM ticket_comments WHERE ticket_id=$1
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Content,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, filename, url, uploaded_at
        FROM ticket_attachments WHERE ticket_id=$1
        ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(&att.ID, &att.TicketID, &att.Filename, &att.URL, &att.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context, scope access.Scope) (StatusCounts, error) {
	args := []any{}
	clause, args := scope.Clause(args)
	query := fmt.Sprintf(`
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='in-progress'),
               COUNT(*) FILTER (WHERE status='resolved'),
               COUNT(*) FILTER (WHERE status='closed')
        FROM tickets WHERE %s`, clause)

	var counts StatusCounts
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&counts.Total,
		&counts.Open,
		&counts.InProgress,
		&counts.Resolved,
		&counts.Closed,
	)
	return counts, err
}

func (r *ticketRepository) PriorityCounts(ctx context.Context, scope access.Scope) (map[domain.TicketPriority]int, error) {
	args := []any{}
	clause, args := scope.Clause(args)
	query := fmt.Sprintf(`
        SELECT priority, COUNT(*)
        FROM tickets WHERE %s
        GROUP BY priority`, clause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketPriority]int)
	for rows.Next() {
		var priority domain.TicketPriority
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		result[priority] = count
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListRecent(ctx context.Context, scope access.Scope, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 5
	}
	args := []any{}
	clause, args := scope.Clause(args)
	query := fmt.Sprintf(`
        SELECT `+ticketColumns+`
        FROM tickets WHERE %s
        ORDER BY created_at DESC
        LIMIT %d`, clause, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByCategory(ctx context.Context) ([]CategoryTicketCount, error) {
	const query = `
        SELECT c.id, c.name, COUNT(t.id)
        FROM tickets t
        JOIN categories c ON c.id = t.category_id
        GROUP BY c.id, c.name
        ORDER BY COUNT(t.id) DESC, c.name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CategoryTicketCount
	for rows.Next() {
		var row CategoryTicketCount
		if err := rows.Scan(&row.CategoryID, &row.Name, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.CategoryID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.CustomerEmail,
		&ticket.CustomerName,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
