package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"drivendev/dialogue"
	"drivendev/logger"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultTTL = time.Hour

type CacheConnectProps struct {
	Logger   *logger.LogMiddleware
	Addr     string
	Password string
	DB       int
	// Backing is the durable store every write goes through to.
	Backing dialogue.SessionStore
	TTL     time.Duration
}

// SessionCache is a write-through redis cache in front of a durable
// dialogue.SessionStore. Redis failures fall back to the backing store.
type SessionCache struct {
	client  *redis.Client
	backing dialogue.SessionStore
	ttl     time.Duration
	logger  *logger.LogMiddleware
}

func Connect(ctx context.Context, args CacheConnectProps) (*SessionCache, error) {
	tracer := otel.Tracer("redisstore/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	client := redis.NewClient(&redis.Options{
		Addr:     args.Addr,
		Password: args.Password,
		DB:       args.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		span.RecordError(err)
		args.Logger.Logger(ctx).Error("[Redis] Could not ping redis", zap.Error(err), zap.String("addr", args.Addr))
		return nil, fmt.Errorf("could not reach redis at %s: %w", args.Addr, err)
	}

	args.Logger.Logger(ctx).Info("[Redis] Session cache started", zap.String("addr", args.Addr))
	return New(client, args.Backing, args.TTL, args.Logger), nil
}

func New(client *redis.Client, backing dialogue.SessionStore, ttl time.Duration, logger *logger.LogMiddleware) *SessionCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SessionCache{client: client, backing: backing, ttl: ttl, logger: logger}
}

func key(sessionID string, week int) string {
	return "session:" + sessionID + ":week:" + strconv.Itoa(week)
}

func (c *SessionCache) GetConversation(ctx context.Context, sessionID string, week int) (*dialogue.ConversationState, error) {
	tracer := otel.Tracer("redisstore/GetConversation")
	ctx, span := tracer.Start(ctx, "GetConversation")
	defer span.End()

	data, err := c.client.Get(ctx, key(sessionID, week)).Bytes()
	if err == nil {
		span.SetAttributes(attribute.Bool("cacheHit", true))
		state, err := dialogue.UnmarshalConversationState(data)
		if err == nil {
			return state, nil
		}
		c.logger.Logger(ctx).Warn("[Redis] Dropping unreadable cached state", zap.Error(err))
	} else if !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		c.logger.Logger(ctx).Warn("[Redis] Cache read failed, using backing store", zap.Error(err))
	}

	state, err := c.backing.GetConversation(ctx, sessionID, week)
	if err != nil {
		return nil, err
	}
	c.put(ctx, sessionID, state)
	return state, nil
}

func (c *SessionCache) SaveConversation(ctx context.Context, sessionID string, state *dialogue.ConversationState) error {
	tracer := otel.Tracer("redisstore/SaveConversation")
	ctx, span := tracer.Start(ctx, "SaveConversation")
	defer span.End()

	if err := c.backing.SaveConversation(ctx, sessionID, state); err != nil {
		span.RecordError(err)
		// A stale cached copy must not outlive a failed write.
		c.client.Del(ctx, key(sessionID, state.Week))
		return err
	}
	c.put(ctx, sessionID, state)
	return nil
}

func (c *SessionCache) put(ctx context.Context, sessionID string, state *dialogue.ConversationState) {
	data, err := state.Marshal()
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(sessionID, state.Week), data, c.ttl).Err(); err != nil {
		c.logger.Logger(ctx).Warn("[Redis] Cache write failed", zap.Error(err))
	}
}

func (c *SessionCache) Close() error {
	return c.client.Close()
}
