package dialogue

// Week 4 repeats the question on an irrelevant answer and moves on after
// two tries. Everything else validates against the generic prompt.
func week4() *Week {
	irrelevant := ScenarioPolicy{Completion: BoundedRetry, RetryCap: 2, Volatile: true}

	return &Week{
		Number:              4,
		ClassifyTemperature: 0.1,
		MaxIterations:       3,
		Generic:             iterate(""),
		GenericValidation:   true,
		Questions: map[int]QuestionPolicy{
			1: {Default: Scenario1, Scenarios: scenarios{Scenario3: irrelevant}},
			2: {Default: Scenario1, Scenarios: scenarios{Scenario3: irrelevant}},
			3: {Default: Scenario1, Scenarios: scenarios{Scenario3: irrelevant}},
			4: {Default: Scenario1, Scenarios: scenarios{Scenario3: irrelevant}},
			5: {Default: Scenario1, Scenarios: scenarios{Scenario3: irrelevant}},
			6: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario2: immediate(""),
					Scenario3: immediate(""),
					Scenario4: irrelevant,
				},
			},
			7: {
				Default: Scenario3,
				Scenarios: scenarios{
					Scenario3: immediate(""),
					Scenario4: retry(2),
					Scenario5: irrelevant,
				},
			},
		},
	}
}
