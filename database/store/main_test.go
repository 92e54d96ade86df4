package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"drivendev/content"
	"drivendev/database/sqlite"
	"drivendev/database/store"
	"drivendev/dialogue"
	"drivendev/logger"
	"drivendev/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, sqlite.DatabaseConnectProps{
		Logger: logger.Nop(),
		Path:   filepath.Join(t.TempDir(), "driven.db"),
	})
	require.NoError(t, err)

	s, err := store.Connect(ctx, store.StoreConnectProps{Logger: logger.Nop(), DB: db, Dialect: store.SQLite})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "driven.db")

	for i := 0; i < 2; i++ {
		db, err := sqlite.Connect(ctx, sqlite.DatabaseConnectProps{Logger: logger.Nop(), Path: path})
		require.NoError(t, err)
		s, err := store.Connect(ctx, store.StoreConnectProps{Logger: logger.Nop(), DB: db, Dialect: store.SQLite})
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

func TestWeekContentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetWeekContent(ctx, 2)
	assert.ErrorIs(t, err, content.ErrWeekNotFound)

	n, err := content.SeedStore(ctx, s)
	require.NoError(t, err)

	seeds, err := content.LoadSeeds(ctx)
	require.NoError(t, err)
	require.Len(t, seeds, n)

	for _, want := range seeds {
		got, err := s.GetWeekContent(ctx, want.Week)
		require.NoError(t, err)
		assert.Equal(t, want.Questions, got.Questions, "week %d", want.Week)
		assert.Equal(t, want.SystemPrompts, got.SystemPrompts, "week %d", want.Week)
		assert.Equal(t, want.ContentBlocks, got.ContentBlocks, "week %d", want.Week)
		assert.Equal(t, want.WelcomeMessage, got.WelcomeMessage, "week %d", want.Week)
		assert.Equal(t, want.FinalResponse, got.FinalResponse, "week %d", want.Week)
	}
}

func TestSaveWeekContentReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &content.WeekContent{
		Week:          7,
		Name:          "Week 7",
		Questions:     map[int]string{1: "one", 2: "two"},
		SystemPrompts: map[int]map[string]string{1: {"default": "be kind"}},
		ContentBlocks: map[string]string{"BLOCK": "text"},
	}
	require.NoError(t, s.SaveWeekContent(ctx, first))

	second := &content.WeekContent{
		Week:           7,
		Name:           "Week 7",
		WelcomeMessage: "Hi {name}",
		Questions:      map[int]string{1: "only"},
		SystemPrompts:  map[int]map[string]string{},
		ContentBlocks:  map[string]string{},
	}
	require.NoError(t, s.SaveWeekContent(ctx, second))

	got, err := s.GetWeekContent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "only"}, got.Questions)
	assert.Empty(t, got.SystemPrompts)
	assert.Empty(t, got.ContentBlocks)
	assert.Equal(t, "Hi {name}", got.WelcomeMessage)
}

func TestConversationState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetConversation(ctx, "s1", 1)
	assert.ErrorIs(t, err, dialogue.ErrSessionNotFound)

	state := dialogue.NewConversationState(1, "Ada")
	state.CurrentQuestion = 2
	state.Answers[1] = []string{"my reason"}
	state.Scenario[2] = dialogue.Scenario3
	require.NoError(t, s.SaveConversation(ctx, "s1", state))

	state.IterationCount[2] = 1
	require.NoError(t, s.SaveConversation(ctx, "s1", state))

	got, err := s.GetConversation(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentQuestion)
	assert.Equal(t, []string{"my reason"}, got.Answers[1])
	assert.Equal(t, dialogue.Scenario3, got.Scenario[2])
	assert.Equal(t, 1, got.IterationCount[2])

	_, err = s.GetConversation(ctx, "s1", 2)
	assert.ErrorIs(t, err, dialogue.ErrSessionNotFound)
}

func TestTrackerOverSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)

	tracker := progress.Connect(ctx, progress.TrackerConnectProps{
		Logger: logger.Nop(),
		Store:  s,
		Now:    func() time.Time { return clock },
	})

	require.NoError(t, tracker.SetName(ctx, "s1", "Ada"))
	require.NoError(t, tracker.UpdateProgress(ctx, "s1", 2, 4, true, false))
	require.NoError(t, tracker.SaveSelectedProblem(ctx, "s1", 2, "finding work"))
	require.NoError(t, tracker.UpdateProgress(ctx, "s1", 2, 6, true, true))

	record, err := s.LoadProgress(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, record.Name)
	assert.Equal(t, "Ada", *record.Name)
	assert.Equal(t, 3, record.CurrentWeek)
	assert.Equal(t, map[int]bool{4: true, 6: true}, record.Weeks[2].QuestionsCompleted)
	assert.True(t, record.Weeks[2].Completed)
	require.NotNil(t, record.Weeks[2].SelectedProblem)
	assert.Equal(t, "finding work", *record.Weeks[2].SelectedProblem)
	assert.True(t, clock.Equal(record.LastUpdated))

	_, err = s.LoadProgress(ctx, "nobody")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}
