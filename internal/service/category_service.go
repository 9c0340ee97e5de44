package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/events"
	"github.com/spec-kit/ticket-manager/internal/repository"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

const categoryCacheKey = "categories:active"

// CategoryService owns the registry of routing buckets. The public active
// listing is served through an optional Redis cache; writes invalidate it.
type CategoryService struct {
	categories repository.CategoryRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// CategoryDependencies bundles collaborators for the category service.
type CategoryDependencies struct {
	CategoryRepo repository.CategoryRepository
	Cache        *redis.Client
	CacheTTL     time.Duration
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewCategoryService constructs the service.
func NewCategoryService(deps CategoryDependencies) *CategoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{
		categories: deps.CategoryRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CategoryCreateInput describes the creation payload.
type CategoryCreateInput struct {
	Name        string
	Description string
	ColorTag    string
	Priority    int
}

// ListActive returns active categories in display order, cache-first. Cache
// failures fall through to the store; the listing never depends on Redis
// being up.
func (s *CategoryService) ListActive(ctx context.Context) ([]domain.Category, error) {
	if cached, ok := s.cachedList(ctx); ok {
		return cached, nil
	}

	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}

	s.storeList(ctx, categories)
	return categories, nil
}

// Create registers a new routing bucket. Superadmin only; duplicate names are
// a conflict.
func (s *CategoryService) Create(ctx context.Context, actor domain.Identity, input CategoryCreateInput) (*domain.Category, error) {
	if actor.Role != domain.RoleSuperadmin {
		return nil, apperrors.NewForbidden("superadmin required")
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" || utf8.RuneCountInString(input.Name) > 100 {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"name": "must be 1-100 characters"})
	}
	if input.ColorTag == "" {
		input.ColorTag = domain.DefaultColorTag
	}
	if input.Priority < 1 {
		input.Priority = 1
	}

	category := &domain.Category{
		Name:        input.Name,
		Description: input.Description,
		ColorTag:    input.ColorTag,
		IsActive:    true,
		Priority:    input.Priority,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("category name already exists", map[string]any{"name": input.Name})
		}
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx)
	s.publish(ctx, actor, category)
	return category, nil
}

// Deactivate soft-disables a category. Existing tickets keep referencing it;
// only routing and the public listing stop.
func (s *CategoryService) Deactivate(ctx context.Context, actor domain.Identity, id string) (*domain.Category, error) {
	if actor.Role != domain.RoleSuperadmin {
		return nil, apperrors.NewForbidden("superadmin required")
	}

	category, err := s.categories.Deactivate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.invalidate(ctx)
	return category, nil
}

func (s *CategoryService) cachedList(ctx context.Context) ([]domain.Category, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, categoryCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("category cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var categories []domain.Category
	if err := json.Unmarshal(payload, &categories); err != nil {
		s.logger.Warn("category cache payload invalid", zap.Error(err))
		return nil, false
	}
	return categories, true
}

func (s *CategoryService) storeList(ctx context.Context, categories []domain.Category) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(categories)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, categoryCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("category cache write failed", zap.Error(err))
	}
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, categoryCacheKey).Err(); err != nil {
		s.logger.Warn("category cache invalidation failed", zap.Error(err))
	}
}

func (s *CategoryService) publish(ctx context.Context, actor domain.Identity, category *domain.Category) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCategoryCreated,
		Actor:     actorOf(actor),
		Timestamp: time.Now(),
		Payload: events.CategoryCreatedPayload{
			CategoryID: category.ID,
			Name:       category.Name,
		},
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
