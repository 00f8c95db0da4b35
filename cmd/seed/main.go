// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"clinika/internal/core/types"
	"clinika/internal/domain/audit"
	"clinika/internal/domain/catalogs/drug"
	"clinika/internal/domain/documents/purchase"
	"clinika/internal/domain/inventory/engine"
	"clinika/internal/domain/inventory/ledger"
	"clinika/internal/infrastructure/storage/postgres"
	"clinika/internal/infrastructure/storage/postgres/catalog_repo"
	"clinika/internal/infrastructure/storage/postgres/document_repo"
	"clinika/internal/infrastructure/storage/postgres/inventory_repo"
	"clinika/pkg/logger"
	"clinika/pkg/lotcode"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	drugRepo := catalog_repo.NewDrugRepo(txManager)
	drugService := drug.NewService(drugRepo, txManager, audit.Nop{})

	drugs, err := seedDrugs(ctx, drugService, drugRepo, log)
	if err != nil {
		log.Fatalw("failed to seed drug catalog", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoStock(ctx, txManager, drugs, log); err != nil {
			log.Fatalw("failed to seed demo stock", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

type seedDrug struct {
	name     string
	unit     drug.Unit
	price    string
	minStock types.Quantity
}

var catalogDrugs = []seedDrug{
	{"Amoxicillin 500mg", drug.UnitCapsule, "0.45", 200},
	{"Paracetamol 500mg", drug.UnitTablet, "0.08", 500},
	{"Ibuprofen 400mg", drug.UnitTablet, "0.12", 300},
	{"Omeprazole 20mg", drug.UnitCapsule, "0.30", 150},
	{"Salbutamol inhaler", drug.UnitPiece, "6.50", 30},
	{"Insulin glargine", drug.UnitVial, "24.90", 20},
	{"Hydrocortisone 1% cream", drug.UnitTube, "3.20", 40},
	{"Oral rehydration salts", drug.UnitSachet, "0.25", 100},
}

// seedDrugs inserts the starter catalog, skipping drugs that already exist.
func seedDrugs(ctx context.Context, svc *drug.Service, repo *catalog_repo.DrugRepo, log *logger.Logger) (map[string]*drug.Drug, error) {
	out := make(map[string]*drug.Drug, len(catalogDrugs))

	for _, sd := range catalogDrugs {
		if existing, err := repo.GetByName(ctx, sd.name); err == nil {
			out[sd.name] = existing
			continue
		}

		price, err := types.NewMoneyFromString(sd.price)
		if err != nil {
			return nil, err
		}

		d := drug.New(sd.name, sd.unit, price)
		d.MinStock = sd.minStock

		if err := svc.Create(ctx, d); err != nil {
			return nil, fmt.Errorf("create drug %q: %w", sd.name, err)
		}

		log.Infow("drug created", "name", sd.name, "id", d.ID)
		out[sd.name] = d
	}

	return out, nil
}

// seedDemoStock books one finalized purchase order so the projection and
// ledger have something to show.
func seedDemoStock(ctx context.Context, txManager *postgres.TxManager, drugs map[string]*drug.Drug, log *logger.Logger) error {
	purchaseRepo := document_repo.NewPurchaseRepo(txManager)
	batchRepo := inventory_repo.NewBatchRepo(txManager)
	movementRepo := inventory_repo.NewMovementRepo(txManager)

	lots := lotcode.New()
	ledgerService := ledger.NewService(movementRepo)
	stockEngine := engine.New(batchRepo, ledgerService, lots, txManager)
	purchaseService := purchase.NewService(purchaseRepo, stockEngine, lots, txManager, audit.Nop{})

	existing, err := purchaseService.List(ctx, purchase.ListFilter{Search: "Demo Pharma Supply", Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("demo purchase order already present, skipping")
		return nil
	}

	o := purchase.NewOrder("Demo Pharma Supply")
	in6mo := time.Now().AddDate(0, 6, 0)
	in12mo := time.Now().AddDate(1, 0, 0)

	for _, line := range []struct {
		name   string
		qty    int64
		expiry *time.Time
	}{
		{"Amoxicillin 500mg", 600, &in6mo},
		{"Paracetamol 500mg", 2000, &in12mo},
		{"Ibuprofen 400mg", 900, &in12mo},
		{"Insulin glargine", 50, &in6mo},
	} {
		d, ok := drugs[line.name]
		if !ok {
			continue
		}
		o.AddLine(d.ID, types.Quantity(line.qty), d.UnitPrice, "", line.expiry)
	}

	created, err := purchaseService.Create(ctx, o)
	if err != nil {
		return fmt.Errorf("create demo order: %w", err)
	}

	if _, err := purchaseService.Finalize(ctx, created.ID); err != nil {
		return fmt.Errorf("finalize demo order: %w", err)
	}

	log.Infow("demo purchase order finalized", "number", created.Number)
	return nil
}
