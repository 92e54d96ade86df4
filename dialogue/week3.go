package dialogue

const skillInventoryQuestion = 17

func week3() *Week {
	offTopic := reclassify()
	offTopic.NoFollowups = true

	return &Week{
		Number:              3,
		ClassifyTemperature: 0.3,
		MaxIterations:       2,
		ClosingMessage:      "Thank you for completing this session! I'll be in touch soon.",
		Generic:             iterate(""),
		Variables: map[string]AnswerVariable{
			"user motivation": {Question: 21, Fallback: "their motivation"},
		},
		SkipValidation: map[int]bool{skillInventoryQuestion: true},
		Questions: map[int]QuestionPolicy{
			16: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: iterate(""),
					Scenario2: iterate(""),
					Scenario3: reclassify(),
				},
			},
			skillInventoryQuestion: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: immediate("scenario_1_respond"),
					Scenario2: {Completion: Inventory, Volatile: true},
					Scenario3: {Completion: Inventory, Volatile: true},
					Scenario4: reclassify(),
				},
			},
			18: {
				Default: Scenario3,
				Scenarios: scenarios{
					Scenario1: iterate(""),
					Scenario2: iterate(""),
					Scenario3: reclassify(),
				},
			},
			19: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: iterate(""),
					Scenario2: iterate(""),
					Scenario3: iterate(""),
					Scenario4: offTopic,
				},
			},
			20: {
				Default: Scenario3,
				Scenarios: scenarios{
					Scenario1: iterate(""),
					Scenario2: iterate(""),
					Scenario3: {Completion: BoundedRetry, RetryCap: 2, Volatile: true},
				},
			},
			21: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: iterate(""),
					Scenario2: iterate(""),
					Scenario3: iterate(""),
					Scenario4: offTopic,
				},
			},
			22: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: iterate(""),
					Scenario2: iterate(""),
					Scenario3: iterate(""),
					Scenario4: offTopic,
				},
			},
		},
	}
}
