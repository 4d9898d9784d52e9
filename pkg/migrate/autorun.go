package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/db"
	"github.com/moda-commerce/moda-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot in dev when
// FeatureFlags.AutoMigrate is set. Every binary calls it, so the first to
// start wins and the rest find nothing to do.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := ValidateDir(DefaultDir); err != nil {
		return err
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}
	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"schema_version": version}), "dev migrations applied")
	return nil
}
