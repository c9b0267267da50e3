// Package main bootstraps a back office database: it applies migrations,
// creates the first Admin account and optionally loads a small sample
// catalog. Running it twice is safe; existing rows are left alone.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/auth"
	"github.com/utafrali/backoffice/internal/config"
	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/event"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/internal/repository/postgres"
	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/migrations"
	pkgconfig "github.com/utafrali/backoffice/pkg/config"
	"github.com/utafrali/backoffice/pkg/database"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/logger"
)

type seedConfig struct {
	AdminUsername string `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD,required"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SampleData    bool   `env:"SEED_SAMPLE_DATA" envDefault:"false"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var seedCfg seedConfig
	if err := pkgconfig.Load(&seedCfg); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(config.ServiceName+"-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, seedCfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed completed")
}

func run(ctx context.Context, cfg *config.Config, seedCfg seedConfig, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Seeding publishes no events.
	store := postgres.NewStore(pool)
	repos := store.Repositories()
	producer := event.NewProducer(event.Discard, log)

	s := &seeder{
		users:      service.NewUserService(repos, store, auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry), nil, log),
		categories: service.NewCategoryService(repos, store, producer, log),
		products:   service.NewProductService(repos, producer, log),
		logger:     log,
	}

	if err := s.admin(ctx, seedCfg); err != nil {
		return err
	}
	if seedCfg.SampleData {
		return s.catalog(ctx)
	}
	return nil
}

type seeder struct {
	users      service.UserManager
	categories service.CategoryManager
	products   service.ProductManager
	logger     *slog.Logger
}

func (s *seeder) admin(ctx context.Context, cfg seedConfig) error {
	_, err := s.users.Create(ctx, service.CreateUserInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Roles:    []string{domain.RoleAdmin},
	})
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		s.logger.Info("admin account already exists", slog.String("username", cfg.AdminUsername))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin account created", slog.String("username", cfg.AdminUsername))
	return nil
}

var sampleCategories = []service.InsertCategoryInput{
	{Name: "Food", Kind: domain.CategoryKindParent, ParentName: domain.RootParentName},
	{Name: "Dairy", Kind: domain.CategoryKindChild, ParentName: "Food"},
	{Name: "Bakery", Kind: domain.CategoryKindChild, ParentName: "Food"},
	{Name: "Beverages", Kind: domain.CategoryKindParent, ParentName: domain.RootParentName},
	{Name: "Juice", Kind: domain.CategoryKindChild, ParentName: "Beverages"},
}

type sampleProduct struct {
	name      string
	price     string
	inventory string
	shelfLife time.Duration
}

var sampleProducts = []sampleProduct{
	{"Cheddar", "7.50", "40", 180 * 24 * time.Hour},
	{"Whole Milk 1L", "1.20", "120", 10 * 24 * time.Hour},
	{"Sourdough Loaf", "3.80", "25", 4 * 24 * time.Hour},
	{"Orange Juice 1L", "2.60", "60", 30 * 24 * time.Hour},
}

func (s *seeder) catalog(ctx context.Context) error {
	for _, in := range sampleCategories {
		_, err := s.categories.Insert(ctx, in)
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert category %q: %w", in.Name, err)
		}
	}
	s.logger.Info("sample categories ready", slog.Int("count", len(sampleCategories)))

	// Products have no natural key, so they are only seeded into an empty catalog.
	_, total, err := s.products.List(ctx, repository.ProductFilter{Page: 1, PerPage: 1})
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if total > 0 {
		s.logger.Info("catalog already has products, skipping", slog.Int("total", total))
		return nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, p := range sampleProducts {
		if _, err := s.products.Create(ctx, service.CreateProductInput{
			Name:           p.name,
			Price:          decimal.RequireFromString(p.price),
			Inventory:      decimal.RequireFromString(p.inventory),
			ProductionDate: today,
			ExpiryDate:     today.Add(p.shelfLife),
		}); err != nil {
			return fmt.Errorf("create product %q: %w", p.name, err)
		}
	}
	s.logger.Info("sample products created", slog.Int("count", len(sampleProducts)))
	return nil
}
