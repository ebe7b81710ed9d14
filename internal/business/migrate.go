package business

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/openkcm/postboard/internal/config"
	migrations "github.com/openkcm/postboard/sql"
)

const (
	embeddedSource = "embedded"
	fileScheme     = "file://"
)

// MigrateMain applies the schema of the postgres session store. The other
// stores have no schema.
func MigrateMain(ctx context.Context, cfg *config.Config) error {
	if cfg.SessionStore.Type != config.SessionStorePostgres {
		slogctx.Info(ctx, "Nothing to migrate", "sessionStore", cfg.SessionStore.Type)
		return nil
	}

	const dialect = "pgx"
	dbSystemName := semconv.DBSystemNamePostgreSQL

	migrationsFS, err := migrationSource(cfg.Migrate.Source)
	if err != nil {
		return err
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making connection string from config: %w", err)
	}

	db, err := otelsql.Open(dialect, connStr, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return oops.In("main").Wrapf(err, "opening DB connection")
	}
	defer db.Close()

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return fmt.Errorf("registering db stats metrics: %w", err)
	}

	defer func() {
		if err := reg.Unregister(); err != nil {
			slogctx.Error(ctx, "failed to unregister db stats metrics", "error", err)
		}
	}()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	slogctx.Info(ctx, "Migrations applied", "version", version)

	return nil
}

// migrationSource resolves the configured source: the migrations built into
// the binary, or a directory given as a file:// URL.
func migrationSource(source string) (fs.FS, error) {
	switch {
	case source == "" || source == embeddedSource:
		return migrations.FS, nil
	case strings.HasPrefix(source, fileScheme):
		return os.DirFS(strings.TrimPrefix(source, fileScheme)), nil
	default:
		return nil, fmt.Errorf("unsupported migration source %q", source)
	}
}
