package dialogue

import (
	"testing"

	"drivendev/content"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	wc := &content.WeekContent{
		Week: 5,
		ContentBlocks: map[string]string{
			"VIDEOS":    "Videos recap.",
			"EXERCISE1": "Exercise one.",
		},
	}
	table := &Week{
		Number:       5,
		BlockAliases: map[string][]string{"Videos+Exercise 1": {"VIDEOS", "EXERCISE1"}},
		Variables:    map[string]AnswerVariable{"user motivation": {Question: 21, Fallback: "their motivation"}},
	}

	answered := NewConversationState(5, "Ada")
	answered.Answers[1] = []string{"first try", "I want a steady job"}
	answered.Answers[21] = []string{"my kids"}
	answered.SelectedProblem = "sleep schedule"

	empty := NewConversationState(5, "Ada")

	tests := []struct {
		name     string
		template string
		state    *ConversationState
		want     string
	}{
		{
			name:     "name in both cases",
			template: "Hi {name}! {Name}, welcome.",
			state:    empty,
			want:     "Hi Ada! Ada, welcome.",
		},
		{
			name:     "latest answer",
			template: "They said: {Answer to question 1}.",
			state:    answered,
			want:     "They said: I want a steady job.",
		},
		{
			name:     "historical phrasings",
			template: "{Answers to questions 1} / {Response from 1} / {{Answer to question 1 (goal)}}",
			state:    answered,
			want:     "I want a steady job / I want a steady job / I want a steady job",
		},
		{
			name:     "based on clause dropped",
			template: "Offer ideas. Based on their goal ({Answer to question 1 (goal)}), keep it short.",
			state:    empty,
			want:     "Offer ideas. keep it short.",
		},
		{
			name:     "their noun keeps the noun",
			template: "Reference their concern ({Answer to question 5 (concerns)}) and praise them.",
			state:    empty,
			want:     "Reference their concern and praise them.",
		},
		{
			name:     "parenthesized placeholder dropped",
			template: "The user overcame them ({Answer to question 5}).",
			state:    empty,
			want:     "The user overcame them.",
		},
		{
			name:     "double braces name the description",
			template: "Build on {{Answer to question 2 (career goal)}} today.",
			state:    empty,
			want:     "Build on their goal today.",
		},
		{
			name:     "bare placeholder removed",
			template: "Answer: {Response from 3} end",
			state:    empty,
			want:     "Answer: end",
		},
		{
			name:     "block alias joins blocks",
			template: "{Videos+Exercise 1}",
			state:    empty,
			want:     "Videos recap.\n\nExercise one.",
		},
		{
			name:     "plain block",
			template: "Recap: {VIDEOS}",
			state:    empty,
			want:     "Recap: Videos recap.",
		},
		{
			name:     "session variables",
			template: "Problem: {Selected_problem}. Corner: {Selected_corner_piece}.",
			state:    answered,
			want:     "Problem: sleep schedule. Corner: " + defaultSelectedCornerPiece + ".",
		},
		{
			name:     "answer variable",
			template: "Driven by {user motivation}.",
			state:    answered,
			want:     "Driven by my kids.",
		},
		{
			name:     "answer variable fallback",
			template: "Driven by {user motivation}.",
			state:    empty,
			want:     "Driven by their motivation.",
		},
		{
			name:     "skill list",
			template: "Cover {skill_list}.",
			state:    empty,
			want:     "Cover " + skillList + ".",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.template, tt.state, wc, table))
		})
	}
}

func TestSubstituteWeekOneAliasesAndClauses(t *testing.T) {
	table := week1()
	wc := &content.WeekContent{Week: 1}
	template := "Offer ideas. Also suggest goals to set based on their reason for participating in DRIVEN (if they provided one). " +
		"Based on their reason for participating ({Answer to 2 (reason for participating in DRIVEN)}), tailor the ideas."

	empty := NewConversationState(1, "Ada")
	out := Substitute(template, empty, wc, table)
	assert.NotContains(t, out, "if they provided one")
	assert.NotContains(t, out, "{")
	assert.Equal(t, "Offer ideas. tailor the ideas.", out)

	answered := NewConversationState(1, "Ada")
	answered.Answers[1] = []string{"I want structure", "and a routine"}
	out = Substitute(template, answered, wc, table)
	assert.Contains(t, out, "(if they provided one)")
	assert.Contains(t, out, "Based on their reason for participating (I want structure and a routine), tailor the ideas.")
}
