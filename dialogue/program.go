package dialogue

// Program returns the policy tables for every week with a dialogue.
func Program() map[int]*Week {
	weeks := []*Week{week1(), week2(), week3(), week4(), week5()}
	program := make(map[int]*Week, len(weeks))
	for _, w := range weeks {
		program[w.Number] = w
	}
	return program
}

// scenarios is shorthand for building a question's scenario map.
type scenarios = map[Scenario]ScenarioPolicy

func iterate(promptKey string) ScenarioPolicy {
	return ScenarioPolicy{Completion: IterateUntilComplete, PromptKey: promptKey, NoFollowups: true}
}

func immediate(promptKey string) ScenarioPolicy {
	return ScenarioPolicy{Completion: Immediate, PromptKey: promptKey, NoFollowups: true}
}

func reclassify() ScenarioPolicy {
	return ScenarioPolicy{Completion: ReclassifyEachTurn, Volatile: true}
}

func retry(limit int) ScenarioPolicy {
	return ScenarioPolicy{Completion: BoundedRetry, RetryCap: limit, NoFollowups: true}
}

func followup(promptKey string) ScenarioPolicy {
	return ScenarioPolicy{Completion: FollowupOnQuestion, PromptKey: promptKey, SkipValidation: true}
}
