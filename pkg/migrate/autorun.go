package migrate

import (
	"context"
	"fmt"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/catalog"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/config"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

// MaybeRunDev executes migrations for both stores automatically when the app
// is running in dev mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, ledger *db.Client, cat *catalog.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ledgerDB, err := ledger.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting ledger sql.DB: %w", err)
	}
	catalogDB, err := cat.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting catalog sql.DB: %w", err)
	}

	runCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultLedgerDir})
	logg.Info(runCtx, "running goose migrations for ledger (dev auto-run)")
	if err := Run(runCtx, ledgerDB, DefaultLedgerDir, "up"); err != nil {
		return fmt.Errorf("running ledger goose up: %w", err)
	}

	runCtx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultCatalogDir})
	logg.Info(runCtx, "running goose migrations for catalog (dev auto-run)")
	if err := Run(runCtx, catalogDB, DefaultCatalogDir, "up"); err != nil {
		return fmt.Errorf("running catalog goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
