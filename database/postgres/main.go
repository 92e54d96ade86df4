package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"drivendev/logger"

	_ "github.com/lib/pq"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type DatabaseConnectProps struct {
	Logger   *logger.LogMiddleware
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	// Retries defaults to 5, with SleepTime (5s) between attempts.
	Retries   int
	SleepTime time.Duration
}

func Connect(ctx context.Context, args DatabaseConnectProps) (*sql.DB, error) {
	tracer := otel.Tracer("postgres/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	connectRetries := args.Retries
	if connectRetries <= 0 {
		connectRetries = 5
	}
	sleepTime := args.SleepTime
	if sleepTime <= 0 {
		sleepTime = 5 * time.Second
	}

	logger := args.Logger.Logger(ctx)

	var conn *sql.DB
	var err error
	for connectRetries > 0 {
		conn, err = getConnection(ctx, args)
		if err == nil {
			logger.Info("[Postgres] Database client started")
			return conn, nil
		}
		connectRetries -= 1
		logger.Error(
			"[Postgres] Could not connect to Postgres. Retrying after sleeping.",
			zap.Error(err),
			zap.Int("Retries Left", connectRetries),
			zap.Duration("Sleep Time", sleepTime),
			zap.String("Host", args.Host))
		if connectRetries == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepTime):
		}
	}

	logger.Error("[Postgres] Failed to Connect to Postgres")
	span.RecordError(err)
	return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
}

func getConnection(ctx context.Context, args DatabaseConnectProps) (*sql.DB, error) {
	tracer := otel.Tracer("postgres/getConnection")
	ctx, span := tracer.Start(ctx, "getConnection")
	defer span.End()

	sslMode := args.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	postgresqlDbInfo := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		args.Host, args.Port, args.User, args.Password, args.Name, sslMode,
	)

	db, err := sql.Open("postgres", postgresqlDbInfo)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		span.RecordError(err)
		return nil, err
	}

	return db, nil
}
