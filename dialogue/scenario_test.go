package dialogue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	allowed := []Scenario{Scenario1, Scenario2, Scenario3}

	tests := []struct {
		reply string
		want  Scenario
		ok    bool
	}{
		{"SCENARIO_2", Scenario2, true},
		{"  scenario_3\n", Scenario3, true},
		{"Scenario 2", Scenario2, true},
		{"Either SCENARIO_3 or SCENARIO_1", Scenario1, true},
		{"SCENARIO_4", ScenarioUnset, false},
		{"SCENARIO_10", ScenarioUnset, false},
		{"I am not sure", ScenarioUnset, false},
		{"", ScenarioUnset, false},
	}
	for _, tt := range tests {
		got, ok := ParseScenario(tt.reply, allowed)
		assert.Equal(t, tt.want, got, tt.reply)
		assert.Equal(t, tt.ok, ok, tt.reply)
	}
}

func TestScenarioLabels(t *testing.T) {
	assert.Equal(t, "SCENARIO_4", Scenario4.String())
	assert.Equal(t, "DEFAULT", ScenarioDefault.String())
	assert.Equal(t, "scenario_2_respond", Scenario2.PromptKey("respond"))
	assert.Equal(t, "default", ScenarioDefault.PromptKey("respond"))
	assert.Zero(t, ScenarioDefault.Number())

	var s Scenario
	require.NoError(t, s.UnmarshalText([]byte("scenario_5")))
	assert.Equal(t, Scenario5, s)
	assert.Error(t, s.UnmarshalText([]byte("SCENARIO_9")))
}

func TestConversationStateRoundTrip(t *testing.T) {
	state := NewConversationState(2, "Ada")
	state.CurrentQuestion = 4
	state.Answers[4] = []string{"my commute"}
	state.Scenario[4] = Scenario2
	state.Scenario[6] = ScenarioDefault

	data, err := state.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]any{"4": "SCENARIO_2", "6": "DEFAULT"}, raw["scenario"])

	decoded, err := UnmarshalConversationState(data)
	require.NoError(t, err)
	assert.Equal(t, state.Answers, decoded.Answers)
	assert.Equal(t, state.Scenario, decoded.Scenario)
	assert.NotNil(t, decoded.SkipNext)
}
