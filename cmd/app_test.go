package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"drivendev/config"
	"drivendev/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a := &app{cfg: cfg, logger: logger.Nop()}
	t.Cleanup(a.close)
	return a
}

func TestOpenStoresMemory(t *testing.T) {
	ctx := context.Background()
	a := testApp(t, config.Config{StoreDriver: driverMemory})

	require.NoError(t, a.openStores(ctx))
	require.NoError(t, a.ensureSeeded(ctx))

	week, err := a.content.GetWeekContent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, week.Week)
}

func TestOpenStoresSqliteSeedsOnce(t *testing.T) {
	ctx := context.Background()
	a := testApp(t, config.Config{
		StoreDriver:      driverSqlite,
		SqlitePath:       filepath.Join(t.TempDir(), "driven.db"),
		ContentCacheSize: 4,
	})

	require.NoError(t, a.openStores(ctx))
	require.NoError(t, a.ensureSeeded(ctx))

	week, err := a.content.GetWeekContent(ctx, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, week.Questions)

	// A second pass finds week 1 and writes nothing.
	require.NoError(t, a.ensureSeeded(ctx))
}

func TestUnknownDrivers(t *testing.T) {
	ctx := context.Background()

	a := testApp(t, config.Config{StoreDriver: "mongo"})
	assert.ErrorContains(t, a.openStores(ctx), `unknown STORE_DRIVER "mongo"`)

	a = testApp(t, config.Config{OracleProvider: "nope"})
	_, err := a.oracle(ctx)
	assert.ErrorContains(t, err, `unknown ORACLE_PROVIDER "nope"`)

	a = testApp(t, config.Config{TTSProvider: "nope"})
	_, err = a.synthesizer(ctx)
	assert.ErrorContains(t, err, `unknown TTS_PROVIDER "nope"`)

	a = testApp(t, config.Config{TTSProvider: "none"})
	speech, err := a.synthesizer(ctx)
	require.NoError(t, err)
	assert.Nil(t, speech)
}
