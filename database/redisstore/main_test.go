package redisstore

import (
	"context"
	"os"
	"testing"

	"drivendev/dialogue"
	"drivendev/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "session:abc:week:3", key("abc", 3))
}

func TestSessionCacheWriteThrough(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	backing := dialogue.NewMemoryStore()

	cache, err := Connect(ctx, CacheConnectProps{Logger: logger.Nop(), Addr: addr, Backing: backing})
	require.NoError(t, err)
	defer cache.Close()

	sessionID := uuid.NewString()
	defer cache.client.Del(ctx, key(sessionID, 2))

	_, err = cache.GetConversation(ctx, sessionID, 2)
	assert.ErrorIs(t, err, dialogue.ErrSessionNotFound)

	state := dialogue.NewConversationState(2, "Ada")
	state.CurrentQuestion = 3
	require.NoError(t, cache.SaveConversation(ctx, sessionID, state))

	stored, err := backing.GetConversation(ctx, sessionID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentQuestion)

	cached, err := cache.GetConversation(ctx, sessionID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Ada", cached.Name)
	assert.Equal(t, 3, cached.CurrentQuestion)
}
