package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"drivendev/logger"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DatabaseConnectProps struct {
	Logger *logger.LogMiddleware
	Path   string
}

// Connect opens (or creates) the database file in WAL mode.
func Connect(ctx context.Context, args DatabaseConnectProps) (*sql.DB, error) {
	tracer := otel.Tracer("sqlite/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	if dir := filepath.Dir(args.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("could not create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", args.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		span.RecordError(err)
		args.Logger.Logger(ctx).Error("[SQLite] Could not open database", zap.Error(err), zap.String("path", args.Path))
		return nil, fmt.Errorf("could not open sqlite database: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		span.RecordError(err)
		return nil, fmt.Errorf("could not reach sqlite database: %w", err)
	}

	args.Logger.Logger(ctx).Info("[SQLite] Database client started", zap.String("path", args.Path))
	return db, nil
}
