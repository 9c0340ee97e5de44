package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-manager/internal/auth"
	"github.com/spec-kit/ticket-manager/internal/config"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/observability"
	"github.com/spec-kit/ticket-manager/internal/persistence"
	"github.com/spec-kit/ticket-manager/internal/repository"
)

const seedPassword = "password123"

type seedCategory struct {
	name        string
	description string
	color       string
	priority    int
	adminEmail  string
	adminFirst  string
	adminLast   string
}

var seedCategories = []seedCategory{
	{"Technical Support", "Technical issues and bugs", "#EF4444", 1, "tech@example.com", "John", "Tech"},
	{"Billing", "Billing and payment issues", "#10B981", 2, "billing@example.com", "Sarah", "Billing"},
	{"General Inquiry", "General questions and inquiries", "#3B82F6", 3, "general@example.com", "Mike", "General"},
	{"Feature Request", "New feature requests", "#8B5CF6", 4, "features@example.com", "Lisa", "Features"},
}

// Seeds demo categories, one admin per category and a superadmin. Existing
// ticket data is wiped first, so this is for development environments only.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	if _, err := pool.Exec(ctx, `TRUNCATE ticket_comments, ticket_attachments, tickets, users, categories CASCADE`); err != nil {
		logger.Fatal("failed to clear existing data", zap.Error(err))
	}

	hash, err := auth.HashPassword(seedPassword, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash seed password", zap.Error(err))
	}

	categoryRepo := repository.NewCategoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	for _, seed := range seedCategories {
		category := &domain.Category{
			Name:        seed.name,
			Description: seed.description,
			ColorTag:    seed.color,
			IsActive:    true,
			Priority:    seed.priority,
		}
		if err := categoryRepo.Create(ctx, category); err != nil {
			logger.Fatal("failed to seed category", zap.String("name", seed.name), zap.Error(err))
		}

		admin := &domain.User{
			Email:        seed.adminEmail,
			PasswordHash: hash,
			FirstName:    seed.adminFirst,
			LastName:     seed.adminLast,
			Role:         domain.RoleAdmin,
			CategoryID:   &category.ID,
			IsActive:     true,
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			logger.Fatal("failed to seed admin", zap.String("email", seed.adminEmail), zap.Error(err))
		}
		logger.Info("seeded category", zap.String("name", seed.name), zap.String("admin", seed.adminEmail))
	}

	superadmin := &domain.User{
		Email:        "superadmin@example.com",
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "Super",
		Role:         domain.RoleSuperadmin,
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, superadmin); err != nil {
		logger.Fatal("failed to seed superadmin", zap.Error(err))
	}

	logger.Info("database seeded", zap.String("superadmin", superadmin.Email), zap.String("password", seedPassword))
}
