package dialogue

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"drivendev/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSeedWeeks(t *testing.T) map[int]*content.WeekContent {
	t.Helper()
	seeds, err := content.LoadSeeds(context.Background())
	require.NoError(t, err)
	weeks := make(map[int]*content.WeekContent, len(seeds))
	for _, w := range seeds {
		weeks[w.Week] = w
	}
	return weeks
}

func TestProgramMatchesSeedContent(t *testing.T) {
	seeds := loadSeedWeeks(t)

	for number, table := range Program() {
		wc, ok := seeds[number]
		require.True(t, ok, "week %d has no seed content", number)

		for _, q := range wc.QuestionNumbers() {
			qp := table.questionPolicy(q, wc)
			prompts := wc.SystemPrompts[q]
			assert.Contains(t, qp.Scenarios, qp.Default, "week %d question %d default", number, q)

			for s, sp := range qp.Scenarios {
				where := fmt.Sprintf("week %d question %d %s", number, q, s)
				switch {
				case sp.Canned != "":
					assert.NotEmpty(t, wc.ContentBlocks[sp.Canned], where)
				case sp.Completion == Inventory:
				default:
					key := sp.PromptKey
					if key == "" {
						key = s.PromptKey("respond")
					}
					assert.NotEmpty(t, prompts[key], "%s: missing prompt %q", where, key)
				}
			}
		}
	}
}

func TestSeedTemplatesLeaveNoPlaceholders(t *testing.T) {
	seeds := loadSeedWeeks(t)

	for number, table := range Program() {
		wc := seeds[number]
		require.NotNil(t, wc)
		state := NewConversationState(number, "Ada")

		templates := []string{wc.WelcomeMessage, wc.Final(), table.ClosingMessage}
		for _, q := range wc.QuestionNumbers() {
			templates = append(templates, wc.Questions[q])
			for _, p := range wc.SystemPrompts[q] {
				templates = append(templates, p)
			}
		}

		for _, tmpl := range templates {
			out := Substitute(tmpl, state, wc, table)
			assert.NotContains(t, out, "{", "week %d: %q", number, firstLine(out))
			assert.NotContains(t, out, "(if they provided one)", "week %d", number)
		}
	}
}

func TestWeekOneQuestionThirteenSkipsFourteen(t *testing.T) {
	seeds := loadSeedWeeks(t)
	week1 := Program()[1]
	qp := week1.questionPolicy(13, seeds[1])
	assert.Equal(t, 14, qp.SkipOnNo)
	assert.True(t, week1.SkipValidation[14])
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
