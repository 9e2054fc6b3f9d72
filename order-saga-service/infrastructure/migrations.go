package infrastructure

import (
	"context"
	"embed"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending schema migration
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to open migrations")
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, fsys)
	if err != nil {
		return errors.Wrap(err, "failed to create migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	for _, result := range results {
		logger.Info("migration applied",
			zap.String("source", result.Source.Path),
			zap.Duration("duration", result.Duration),
		)
	}

	return nil
}
