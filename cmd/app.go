package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"drivendev/config"
	"drivendev/content"
	"drivendev/database/postgres"
	"drivendev/database/redisstore"
	"drivendev/database/sqlite"
	"drivendev/database/store"
	"drivendev/dialogue"
	"drivendev/logger"
	"drivendev/modelapi"
	"drivendev/modelapi/anthropicapi"
	"drivendev/modelapi/cartesiaapi"
	"drivendev/modelapi/deepgramapi"
	"drivendev/modelapi/deepinfraapi"
	"drivendev/modelapi/geminiapi"
	"drivendev/modelapi/groqapi"
	"drivendev/modelapi/openaiapi"
	"drivendev/progress"

	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"github.com/hyperdxio/otel-config-go/otelconfig"
	"go.uber.org/zap"
)

const (
	driverMemory   = "memory"
	driverSqlite   = "sqlite"
	driverPostgres = "postgres"
)

// app holds everything the commands share. close releases it in reverse
// order of acquisition.
type app struct {
	cfg    config.Config
	logger *logger.LogMiddleware

	content  content.Source
	writer   content.Writer
	sessions dialogue.SessionStore
	tracker  *progress.Tracker
	engine   *dialogue.Engine

	closers []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// bootstrap sets up telemetry and logging only.
func bootstrap(ctx context.Context) *app {
	cfg := config.Load()
	a := &app{cfg: cfg}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		log.Fatalf("Error setting up OTel SDK - %e", err)
	}
	a.onClose(otelShutdown)

	var loggerProvider *sdk.LoggerProvider
	if logExporter, err := otlplogs.NewExporter(ctx); err == nil {
		loggerProvider = sdk.NewLoggerProvider(sdk.WithBatcher(logExporter))
		a.onClose(func() { loggerProvider.Shutdown(context.Background()) })
	}

	a.logger = logger.Connect(logger.LoggerConnectProps{Production: cfg.Production, LoggerProvider: loggerProvider})
	a.onClose(a.logger.Sync)

	mode := "development"
	if cfg.Production {
		mode = "production"
	}
	a.logger.Logger(ctx).Info("[Server] Starting", zap.String("mode", mode), zap.String("store", cfg.StoreDriver))
	return a
}

// openStores connects the configured store driver and, when REDIS_ADDR is
// set, puts the redis session cache in front of it.
func (a *app) openStores(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case driverMemory:
		seeds, err := content.LoadSeeds(ctx)
		if err != nil {
			return err
		}
		static := content.NewStatic(seeds...)
		a.content, a.writer = static, static
		a.sessions = dialogue.NewMemoryStore()
		a.tracker = progress.Connect(ctx, progress.TrackerConnectProps{Logger: a.logger, Store: progress.NewMemoryStore()})
		return nil

	case driverSqlite, driverPostgres:
		db, dialect, err := a.openDB(ctx)
		if err != nil {
			return err
		}
		s, err := store.Connect(ctx, store.StoreConnectProps{Logger: a.logger, DB: db, Dialect: dialect})
		if err != nil {
			db.Close()
			return err
		}
		a.onClose(func() { s.Close() })

		a.content = content.Connect(ctx, content.CacheConnectProps{Logger: a.logger, Source: s, Size: a.cfg.ContentCacheSize})
		a.writer = s
		a.sessions = s
		a.tracker = progress.Connect(ctx, progress.TrackerConnectProps{Logger: a.logger, Store: s})

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", a.cfg.StoreDriver)
	}

	if a.cfg.RedisAddr != "" {
		cache, err := redisstore.Connect(ctx, redisstore.CacheConnectProps{
			Logger:   a.logger,
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
			Backing:  a.sessions,
		})
		if err != nil {
			a.logger.Logger(ctx).Warn("[Server] Running without the redis session cache", zap.Error(err))
			return nil
		}
		a.onClose(func() { cache.Close() })
		a.sessions = cache
	}
	return nil
}

func (a *app) openDB(ctx context.Context) (*sql.DB, store.Dialect, error) {
	if a.cfg.StoreDriver == driverPostgres {
		pg := a.cfg.Postgres
		db, err := postgres.Connect(ctx, postgres.DatabaseConnectProps{
			Logger:   a.logger,
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			Name:     pg.Name,
			SSLMode:  pg.SSLMode,
		})
		return db, store.Postgres, err
	}
	db, err := sqlite.Connect(ctx, sqlite.DatabaseConnectProps{Logger: a.logger, Path: a.cfg.SqlitePath})
	return db, store.SQLite, err
}

// ensureSeeded writes the bundled content when the store has none yet.
func (a *app) ensureSeeded(ctx context.Context) error {
	_, err := a.content.GetWeekContent(ctx, 1)
	if err == nil {
		return nil
	}
	if !errors.Is(err, content.ErrWeekNotFound) {
		return err
	}
	n, err := content.SeedStore(ctx, a.writer)
	if err != nil {
		return err
	}
	if cache, ok := a.content.(*content.Cache); ok {
		cache.Purge()
	}
	a.logger.Logger(ctx).Info("[Server] Seeded empty store", zap.Int("weeks", n))
	return nil
}

func (a *app) connectEngine(ctx context.Context) error {
	oracle, err := a.oracle(ctx)
	if err != nil {
		return err
	}
	a.engine = dialogue.NewEngine(dialogue.EngineProps{
		Logger:   a.logger,
		Content:  a.content,
		Sessions: a.sessions,
		Progress: a.tracker,
		Oracle:   oracle,
	})
	return nil
}

func (a *app) oracle(ctx context.Context) (modelapi.Completer, error) {
	switch a.cfg.OracleProvider {
	case "openai":
		return openaiapi.Connect(ctx, openaiapi.OpenAIConnectProps{Logger: a.logger}), nil
	case "gemini":
		gemini, err := geminiapi.Connect(ctx, geminiapi.GeminiConnectProps{Logger: a.logger})
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "groq":
		return groqapi.Connect(ctx, groqapi.GroqConnectProps{Logger: a.logger}), nil
	case "anthropic":
		return anthropicapi.Connect(ctx, anthropicapi.AnthropicConnectProps{Logger: a.logger}), nil
	default:
		return nil, fmt.Errorf("unknown ORACLE_PROVIDER %q", a.cfg.OracleProvider)
	}
}

func (a *app) synthesizer(ctx context.Context) (modelapi.Synthesizer, error) {
	switch a.cfg.TTSProvider {
	case "openai":
		return openaiapi.Connect(ctx, openaiapi.OpenAIConnectProps{Logger: a.logger}), nil
	case "cartesia":
		return cartesiaapi.Connect(ctx, cartesiaapi.CartesiaConnectProps{Logger: a.logger}), nil
	case "deepinfra":
		return deepinfraapi.Connect(ctx, deepinfraapi.DeepInfraConnectProps{Logger: a.logger}), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", a.cfg.TTSProvider)
	}
}

func (a *app) transcriber(ctx context.Context) modelapi.Transcriber {
	return deepgramapi.Connect(ctx, deepgramapi.DeepgramConnectProps{Logger: a.logger, Language: "en"})
}
