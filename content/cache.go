package content

import (
	"context"

	"drivendev/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CacheConnectProps struct {
	Logger *logger.LogMiddleware
	Source Source
	Size   int
}

// Cache is a read-through LRU in front of a Source. Week content is
// immutable once loaded, so entries only leave on eviction or Invalidate.
type Cache struct {
	logger *logger.LogMiddleware
	source Source
	weeks  *lru.Cache[int, *WeekContent]
}

func Connect(ctx context.Context, args CacheConnectProps) *Cache {
	tracer := otel.Tracer("content/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	size := args.Size
	if size <= 0 {
		size = 16
	}
	span.SetAttributes(attribute.Int("cacheSize", size))

	weeks, err := lru.New[int, *WeekContent](size)
	if err != nil {
		args.Logger.Logger(ctx).Fatal("[Content] Could not create content cache", zap.Error(err))
	}

	return &Cache{logger: args.Logger, source: args.Source, weeks: weeks}
}

func (c *Cache) GetWeekContent(ctx context.Context, week int) (*WeekContent, error) {
	tracer := otel.Tracer("content/GetWeekContent")
	ctx, span := tracer.Start(ctx, "GetWeekContent")
	defer span.End()

	span.SetAttributes(attribute.Int("week", week))

	if cached, ok := c.weeks.Get(week); ok {
		span.SetAttributes(attribute.Bool("cacheHit", true))
		return cached, nil
	}

	loaded, err := c.source.GetWeekContent(ctx, week)
	if err != nil {
		span.RecordError(err)
		c.logger.Logger(ctx).Error("[Content] Could not load week content", zap.Error(err), zap.Int("week", week))
		return nil, err
	}

	c.weeks.Add(week, loaded)
	c.logger.Logger(ctx).Info("[Content] Week content loaded",
		zap.Int("week", week),
		zap.Int("questions", len(loaded.Questions)),
		zap.Int("contentBlocks", len(loaded.ContentBlocks)),
	)
	return loaded, nil
}

func (c *Cache) Invalidate(week int) {
	c.weeks.Remove(week)
}

func (c *Cache) Purge() {
	c.weeks.Purge()
}
