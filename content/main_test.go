package content

import (
	"context"
	"errors"
	"testing"

	"drivendev/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSeed = `
week: 9
title: Sample
welcome_message: Hi {name}
content_blocks:
  PRINT_Q2: |-
    First print
    ---
    Second print
  FINAL_RESPONSE: Bye from block
questions:
  - number: 4
    text: Fourth?
  - number: 2
    text: Second?
    prompts:
      default: Be nice.
`

func TestParseSeed(t *testing.T) {
	week, err := ParseSeed([]byte(sampleSeed))
	require.NoError(t, err)

	assert.Equal(t, 9, week.Week)
	assert.Equal(t, "Week 9", week.Name)
	assert.Equal(t, []int{2, 4}, week.QuestionNumbers())
	assert.Equal(t, 2, week.FirstQuestion())
	assert.Equal(t, 4, week.LastQuestion())
	assert.Equal(t, 4, week.NextQuestion(2))
	assert.Equal(t, 5, week.NextQuestion(4))
	assert.Equal(t, "Be nice.", week.SystemPrompts[2]["default"])
	assert.Empty(t, week.SystemPrompts[4])
	assert.Equal(t, []string{"First print", "Second print"}, week.PrintMessages(2))
	assert.Nil(t, week.PrintMessages(4))
	assert.Equal(t, "Bye from block", week.Final())
}

func TestParseSeedRejectsBadDocuments(t *testing.T) {
	_, err := ParseSeed([]byte("title: no week"))
	assert.Error(t, err)

	_, err = ParseSeed([]byte("week: 1\nquestions:\n  - number: 1\n  - number: 1\n"))
	assert.ErrorContains(t, err, "duplicate question 1")

	_, err = ParseSeed([]byte("week: [oops"))
	assert.Error(t, err)
}

func TestLoadSeedsCoversEveryWeek(t *testing.T) {
	weeks, err := LoadSeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, weeks, 5)

	for i, week := range weeks {
		assert.Equal(t, i+1, week.Week)
		assert.NotEmpty(t, week.WelcomeMessage, "week %d", week.Week)
		assert.NotEmpty(t, week.Questions, "week %d", week.Week)
		assert.NotEmpty(t, week.Final(), "week %d", week.Week)
	}
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	week, err := ParseSeed([]byte(sampleSeed))
	require.NoError(t, err)

	static := NewStatic()
	_, err = static.GetWeekContent(ctx, 9)
	assert.True(t, errors.Is(err, ErrWeekNotFound))

	n, err := SeedStore(ctx, static)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, static.SaveWeekContent(ctx, week))
	got, err := static.GetWeekContent(ctx, 9)
	require.NoError(t, err)
	assert.Same(t, week, got)
}

type countingSource struct {
	calls int
	weeks map[int]*WeekContent
}

func (c *countingSource) GetWeekContent(ctx context.Context, week int) (*WeekContent, error) {
	c.calls++
	w, ok := c.weeks[week]
	if !ok {
		return nil, ErrWeekNotFound
	}
	return w, nil
}

func TestCacheReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{weeks: map[int]*WeekContent{1: {Week: 1}, 2: {Week: 2}}}
	cache := Connect(ctx, CacheConnectProps{Logger: logger.Nop(), Source: source, Size: 1})

	for range 3 {
		w, err := cache.GetWeekContent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, w.Week)
	}
	assert.Equal(t, 1, source.calls)

	// Size 1: loading week 2 evicts week 1.
	_, err := cache.GetWeekContent(ctx, 2)
	require.NoError(t, err)
	_, err = cache.GetWeekContent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, source.calls)

	cache.Invalidate(1)
	_, err = cache.GetWeekContent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, source.calls)
}

func TestCacheDoesNotStoreMisses(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{weeks: map[int]*WeekContent{}}
	cache := Connect(ctx, CacheConnectProps{Logger: logger.Nop(), Source: source})

	_, err := cache.GetWeekContent(ctx, 3)
	assert.ErrorIs(t, err, ErrWeekNotFound)

	source.weeks[3] = &WeekContent{Week: 3}
	w, err := cache.GetWeekContent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Week)
}
