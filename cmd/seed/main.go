// Package main provides a CLI tool for seeding the database with a demo
// clinic: an admin user, a few products with stock and one customer.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"vetpos/internal/core/apperror"
	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/auth"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/registers/stock"
	"vetpos/internal/infrastructure/storage/postgres"
	"vetpos/internal/infrastructure/storage/postgres/auth_repo"
	"vetpos/internal/infrastructure/storage/postgres/catalog_repo"
	"vetpos/internal/infrastructure/storage/postgres/register_repo"
	"vetpos/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	clinicID := getEnv("CLINIC_ID", "clinic-demo")

	// Repos read the clinic scope from context; the seed actor carries it.
	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:   "seed",
		ClinicID: clinicID,
		Roles:    []string{auth.RoleAdmin},
	})

	txManager := postgres.NewTxManager(pool)
	userRepo := auth_repo.NewUserRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	ownerRepo := catalog_repo.NewOwnerRepo(txManager)
	stockRepo := register_repo.NewStockRepo(txManager)
	stockService := stock.NewService(stockRepo, productRepo, txManager)

	if err := seedAdminUser(ctx, userRepo, clinicID, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if getEnv("SEED_DEMO_DATA", "true") == "true" {
		if err := seedDemoData(ctx, productRepo, ownerRepo, stockService, clinicID, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, users *auth_repo.UserRepo, clinicID string, log *logger.Logger) error {
	email := getEnv("ADMIN_EMAIL", "admin@vetpos.local")
	password := getEnv("ADMIN_PASSWORD", "Admin123!")

	if existing, err := users.GetByEmail(ctx, email); err == nil && existing != nil {
		log.Infow("admin user already exists", "email", email)
		return nil
	} else if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := auth.NewUser(clinicID, email, "Administrator", []string{auth.RoleAdmin})
	admin.PasswordHash = hash
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	log.Infow("admin user created", "email", email, "clinic_id", clinicID)
	return nil
}

type demoProduct struct {
	name         string
	unitPrice    string
	dosePrice    string
	unitLabel    string
	doseLabel    string
	dosesPerUnit int64
	divisible    bool
	minStock     string
	units        int64
}

func seedDemoData(
	ctx context.Context,
	products *catalog_repo.ProductRepo,
	owners *catalog_repo.OwnerRepo,
	stockService *stock.Service,
	clinicID string,
	log *logger.Logger,
) error {
	demo := []demoProduct{
		{"Rabies Vaccine", "20.00", "2.50", "vial", "injection", 10, true, "20", 5},
		{"Amoxicillin 250mg", "15.00", "", "bottle", "ml", 100, true, "150", 8},
		{"Dog Food Premium 15kg", "45.00", "", "bag", "", 1, false, "2", 12},
		{"Dewormer Paste", "12.00", "1.50", "tube", "dose", 8, true, "16", 6},
	}

	for _, d := range demo {
		if existing, err := products.FindByName(ctx, d.name); err == nil && existing != nil {
			continue
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		unitPrice, err := decimal.NewFromString(d.unitPrice)
		if err != nil {
			return err
		}

		p := product.New(clinicID, d.name, unitPrice, d.dosesPerUnit)
		p.UnitLabel = d.unitLabel
		p.DoseLabel = d.doseLabel
		p.Divisible = d.divisible
		if d.dosePrice != "" {
			dosePrice, err := decimal.NewFromString(d.dosePrice)
			if err != nil {
				return err
			}
			p.DosePrice = &dosePrice
		}
		if d.minStock != "" {
			minStock, err := decimal.NewFromString(d.minStock)
			if err != nil {
				return err
			}
			p.MinStockDoses = minStock
		}

		if err := products.Create(ctx, p); err != nil {
			return err
		}

		if _, err := stockService.Initialize(ctx, stock.InitializeInput{
			ProductID: p.ID,
			Units:     d.units,
			Doses:     decimal.Zero,
			Note:      "seed",
		}); err != nil {
			return err
		}

		log.Infow("product seeded", "name", d.name, "units", d.units)
	}

	demoOwner := owner.New(clinicID, "Maria Gonzalez")
	demoOwner.Phone = "+58-412-5550123"
	demoOwner.Email = "maria@example.com"
	if err := owners.Create(ctx, demoOwner); err != nil {
		return err
	}
	if err := owners.AdjustCredit(ctx, demoOwner.ID, types.MustMoney("50.00")); err != nil {
		return err
	}
	log.Infow("demo owner seeded", "name", demoOwner.Name, "credit", "50.00")

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
