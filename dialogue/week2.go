package dialogue

import (
	"fmt"

	"drivendev/content"
)

const cornerPieceBlock = "CORNER_PIECE_METHOD"

func week2() *Week {
	return &Week{
		Number:              2,
		ClassifyTemperature: 0.1,
		MaxIterations:       3,
		ClosingMessage:      "Thank you for completing Week 2! Great job diving into the second week's materials.",
		Questions: map[int]QuestionPolicy{
			1: {
				Default: Scenario1,
				Scenarios: scenarios{
					Scenario1: immediate("scenario_1_respond"),
					Scenario2: immediate("scenario_2_respond"),
				},
			},
			2: {
				Default: Scenario1,
				Scenarios: scenarios{
					Scenario1: immediate("scenario_1_respond"),
					Scenario2: immediate("scenario_2_respond"),
				},
			},
			3: {
				Default: Scenario2,
				Scenarios: scenarios{
					Scenario1: immediate("scenario_1_respond"),
					Scenario2: immediate("scenario_2_respond"),
				},
			},
			4: {
				Default: Scenario2,
				Intro:   exerciseIntro,
				Scenarios: scenarios{
					Scenario1: {Completion: Immediate, PromptKey: "scenario_1_respond", NoFollowups: true, Capture: CaptureSelectedProblem},
					Scenario2: {Completion: IterateUntilComplete, PromptKey: "scenario_2_respond", Capture: CaptureSelectedProblem},
				},
			},
			5: {
				Default: Scenario2,
				Intro:   selectedProblemIntro,
				Scenarios: scenarios{
					Scenario1: {Completion: Immediate, PromptKey: "scenario_1_respond", NoFollowups: true, Capture: CaptureCornerPiece},
					Scenario2: {Completion: IterateUntilComplete, PromptKey: "scenario_2_respond", Capture: CaptureCornerPiece},
				},
			},
			6: {
				Intro: cornerPieceIntro,
				Scenarios: scenarios{
					ScenarioDefault: {Completion: Immediate, Canned: "Q6_CANNED_RESPONSE"},
				},
			},
		},
	}
}

func exerciseIntro(*ConversationState, *content.WeekContent) string {
	return "Let's now take a look at the exercise you completed using the corner-piece method from Week 2!\n\n"
}

func selectedProblemIntro(state *ConversationState, week *content.WeekContent) string {
	problem := state.SelectedProblem
	if problem == "" {
		problem = defaultSelectedProblem
	}
	return fmt.Sprintf("Earlier you said you're working on this problem: %s.\n"+
		"Think back to the exercise where you identified small \"corner pieces\" to get started.\n\n%s\n\n",
		problem, week.ContentBlocks[cornerPieceBlock])
}

func cornerPieceIntro(state *ConversationState, week *content.WeekContent) string {
	corner := state.SelectedCornerPiece
	if corner == "" {
		corner = defaultSelectedCornerPiece
	}
	return fmt.Sprintf("You listed this corner piece to get started: %s.\n\n%s\n\n",
		corner, week.ContentBlocks[cornerPieceBlock])
}
