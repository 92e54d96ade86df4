package dialogue

import (
	"fmt"
	"strings"
)

const reasonForParticipating = "{Answer to 2 (reason for participating in DRIVEN)}"

func week1() *Week {
	return &Week{
		Number:              1,
		ClassifyTemperature: 0.1,
		MaxIterations:       3,
		JoinAnswers:         true,
		ClosingMessage:      "Thank you for completing Week 1! Great job working through the first week's materials.",
		AnswerAliases: map[string]int{
			reasonForParticipating: 1,
		},
		OptionalClauses: map[int][]string{
			1: {
				"Also suggest goals to set based on their reason for participating in DRIVEN (if they provided one). ",
				"Also provide suggestions aligned with their reason for participating in DRIVEN (if they provided one). ",
			},
		},
		SkipValidation: map[int]bool{9: true, 10: true, 11: true, 12: true, 13: true, 14: true},
		Questions: map[int]QuestionPolicy{
			1: {
				Scenarios: scenarios{
					ScenarioDefault: {Completion: FollowupOnQuestion, PromptKey: "default"},
				},
			},
			2: {
				MaxIterations: 5,
				FullAnswers:   true,
				Default:       Scenario2,
				Scenarios: scenarios{
					Scenario1: homeworkLoop("scenario_1_ask"),
					Scenario2: {Completion: Immediate, PromptKey: "scenario_2_congratulate", NoFollowups: true, SkipValidation: true},
					Scenario3: homeworkLoop("scenario_3_ask"),
				},
			},
			3: {
				Default: Scenario1,
				Scenarios: scenarios{
					Scenario1: iterate("scenario_1_respond"),
					Scenario2: iterate("scenario_2_respond"),
				},
			},
			4: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: iterate("scenario_1_respond"),
					Scenario2: iterate("scenario_2_prompt"),
					Scenario3: iterate("scenario_3_followup"),
				},
			},
			5: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: {Completion: Immediate, PromptKey: "scenario_1_respond"},
					Scenario2: {Completion: IterateUntilComplete, PromptKey: "scenario_2_prompt"},
				},
			},
			6: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: {
						Completion:       IterateUntilComplete,
						PromptKey:        "scenario_1_assist",
						FollowupTemplate: stepFollowup,
					},
					Scenario2: {Completion: Immediate, PromptKey: "scenario_2_reinforce"},
				},
			},
			7: {
				Default: Scenario1,
				Scenarios: scenarios{
					Scenario1: {Completion: IterateUntilComplete, PromptKey: "scenario_1_respond"},
					Scenario2: {
						Completion:       BoundedRetry,
						RetryCap:         2,
						PromptKey:        "scenario_2_respond",
						FollowupTemplate: barrierPraise,
					},
				},
			},
			8: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: iterate("scenario_1_respond"),
					Scenario2: iterate("scenario_2_respond"),
				},
			},
			9:  {Scenarios: scenarios{ScenarioDefault: followup("default")}},
			10: {Scenarios: scenarios{ScenarioDefault: followup("default")}},
			11: {Scenarios: scenarios{ScenarioDefault: followup("default")}},
			12: {Scenarios: scenarios{ScenarioDefault: followup("default")}},
			13: {Scenarios: scenarios{ScenarioDefault: followup("default")}, SkipOnNo: 14},
			14: {Scenarios: scenarios{ScenarioDefault: followup("default")}},
		},
	}
}

// homeworkLoop asks for the four homework answers, then acknowledges each
// new batch until the validator is satisfied.
func homeworkLoop(promptKey string) ScenarioPolicy {
	return ScenarioPolicy{
		Completion:       IterateUntilComplete,
		PromptKey:        promptKey,
		FollowupTemplate: homeworkFollowup,
		NoFollowups:      true,
	}
}

func homeworkFollowup(answer string) string {
	if hasNumberedAnswers(answer) {
		return "You are a professional career coach. The user's name is {name}. \n" +
			"The user has provided numbered responses (1. 2. 3. 4.) to the 4 homework questions you asked. " +
			"Acknowledge their responses positively and confirm that they've completed the homework exercise. Be encouraging and warm."
	}
	return "You are a professional career coach. The user's name is {name}. \n" +
		"You asked the user to answer 4 homework questions. The user is providing additional information. " +
		"Acknowledge their responses and ask for any remaining information if needed."
}

func hasNumberedAnswers(answer string) bool {
	lower := strings.ToLower(answer)
	for i := 1; i <= 4; i++ {
		if strings.Contains(lower, fmt.Sprintf("%d.", i)) || strings.Contains(lower, fmt.Sprintf("%d)", i)) {
			return true
		}
	}
	return false
}

func stepFollowup(string) string {
	return "You are a professional career coach. The user's name is {name}. \n" +
		"You just provided them with a breakdown of steps to achieve their goal. The user has responded.\n\n" +
		"Acknowledge their response. If they've selected a specific step or mentioned a concrete action they will take, " +
		"confirm it positively and encourage them. If their response is vague or they haven't selected a specific step yet, " +
		"gently encourage them to pick one of the suggestions you provided and specify when/where they'll do it.\n\n" +
		"Be warm and supportive."
}

func barrierPraise(string) string {
	return "Imagine that you are a trained career coach that helps adults with mental health issues learn how to think more flexibly. " +
		"The user's name is {name}. \n\n" +
		"The user has provided a response about barriers they might encounter. " +
		"Acknowledge their response positively with praise and motivation. Be warm and encouraging. \n\n" +
		"CRITICAL: Do NOT ask any follow-up questions. Simply provide praise and motivation, then conclude your response. " +
		"The goal is to move on to the next question."
}
