package dialogue

const (
	week5Videos    = "WEEK5_VIDEOS_EXERCISES"
	week5Exercise1 = "WEEK5_EXERCISE1"
	week5Exercise2 = "WEEK5_EXERCISE2"
)

func week5() *Week {
	offTopic := retry(3)
	offTopic.AppendQuestion = true

	return &Week{
		Number:              5,
		ClassifyTemperature: 0.1,
		MaxIterations:       3,
		Generic:             iterate(""),
		GenericValidation:   true,
		BlockAliases: map[string][]string{
			"Week5_Videos+Exercises":  {week5Videos},
			"Week5_Videos+Exercise 1": {week5Videos, week5Exercise1},
			"Week5_Videos+Exercise 2": {week5Videos, week5Exercise2},
			"WEEK5_EXERCISES":         {week5Videos, week5Exercise1, week5Exercise2},
		},
		Questions: map[int]QuestionPolicy{
			2: {
				Scenarios: scenarios{
					Scenario2: {
						Completion:     FollowupOnQuestion,
						NoFollowups:    true,
						SkipValidation: true,
						MaxIterations:  5,
					},
				},
			},
			4: {Scenarios: scenarios{Scenario3: offTopic}},
			5: {Scenarios: scenarios{Scenario3: offTopic}},
		},
	}
}
