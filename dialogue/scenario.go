package dialogue

import (
	"fmt"
	"strings"
)

// Scenario is a classifier-assigned label for one answer to one question.
type Scenario int

const (
	ScenarioUnset Scenario = iota
	Scenario1
	Scenario2
	Scenario3
	Scenario4
	Scenario5
	// ScenarioDefault is used by questions that have no classifier prompt.
	ScenarioDefault
)

const defaultLabel = "DEFAULT"

func (s Scenario) String() string {
	switch s {
	case ScenarioUnset:
		return ""
	case ScenarioDefault:
		return defaultLabel
	default:
		return fmt.Sprintf("SCENARIO_%d", int(s))
	}
}

// Number returns N for SCENARIO_N and 0 otherwise.
func (s Scenario) Number() int {
	if s >= Scenario1 && s <= Scenario5 {
		return int(s)
	}
	return 0
}

// PromptKey builds the content key for this scenario, e.g. "scenario_2_respond".
func (s Scenario) PromptKey(suffix string) string {
	if s == ScenarioDefault || s == ScenarioUnset {
		return "default"
	}
	return fmt.Sprintf("scenario_%d_%s", int(s), suffix)
}

func (s Scenario) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scenario) UnmarshalText(text []byte) error {
	label := strings.ToUpper(strings.TrimSpace(string(text)))
	switch label {
	case "":
		*s = ScenarioUnset
		return nil
	case defaultLabel:
		*s = ScenarioDefault
		return nil
	}
	for n := Scenario1; n <= Scenario5; n++ {
		if label == n.String() {
			*s = n
			return nil
		}
	}
	return fmt.Errorf("unknown scenario label %q", string(text))
}

// ParseScenario maps a raw oracle reply onto one of the allowed scenarios.
// The reply is upper-cased and the lowest-numbered allowed SCENARIO_N it
// contains wins. ok is false when nothing matched.
func ParseScenario(reply string, allowed []Scenario) (Scenario, bool) {
	upper := strings.ToUpper(reply)
	upper = strings.ReplaceAll(upper, "SCENARIO ", "SCENARIO_")

	best := ScenarioUnset
	for _, candidate := range allowed {
		if candidate.Number() == 0 {
			continue
		}
		if !containsLabel(upper, candidate.String()) {
			continue
		}
		if best == ScenarioUnset || candidate < best {
			best = candidate
		}
	}
	return best, best != ScenarioUnset
}

// containsLabel avoids SCENARIO_1 matching inside SCENARIO_10.
func containsLabel(text, label string) bool {
	for offset := 0; ; {
		idx := strings.Index(text[offset:], label)
		if idx < 0 {
			return false
		}
		end := offset + idx + len(label)
		if end >= len(text) || text[end] < '0' || text[end] > '9' {
			return true
		}
		offset = end
	}
}
