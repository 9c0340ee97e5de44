package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-manager/internal/domain"
)

// CategoryRepository manages routing-bucket persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Deactivate(ctx context.Context, id string) (*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
	CountActive(ctx context.Context) (int, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, color_tag, is_active, priority)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.ColorTag,
		category.IsActive,
		category.Priority,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) Deactivate(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        UPDATE categories SET is_active = FALSE, updated_at = NOW()
        WHERE id=$1
        RETURNING id, name, description, color_tag, is_active, priority, created_at, updated_at`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, color_tag, is_active, priority, created_at, updated_at
        FROM categories WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *categoryRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Category, error) {
	if len(ids) == 0 {
		return map[string]domain.Category{}, nil
	}
	const query = `
        SELECT id, name, description, color_tag, is_active, priority, created_at, updated_at
        FROM categories WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Category, len(ids))
	for rows.Next() {
		var category domain.Category
		if err := scanCategory(rows, &category); err != nil {
			return nil, err
		}
		result[category.ID] = category
	}
	return result, rows.Err()
}

// ListActive returns active categories in display order.
func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT id, name, description, color_tag, is_active, priority, created_at, updated_at
        FROM categories WHERE is_active = TRUE
        ORDER BY priority ASC, name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := scanCategory(rows, &category); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE is_active = TRUE`).Scan(&count)
	return count, err
}

func (r *categoryRepository) scanOne(row pgx.Row) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ColorTag,
		&category.IsActive,
		&category.Priority,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func scanCategory(rows pgx.Rows, category *domain.Category) error {
	return rows.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ColorTag,
		&category.IsActive,
		&category.Priority,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
}
