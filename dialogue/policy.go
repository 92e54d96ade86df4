package dialogue

import (
	"sort"
	"strconv"
	"strings"

	"drivendev/content"
)

// Completion decides whether a question loops or advances after a reply.
type Completion int

const (
	// Immediate answers once and always advances.
	Immediate Completion = iota
	// IterateUntilComplete asks the validation oracle and loops while the
	// answer is incomplete, up to the question's iteration cap.
	IterateUntilComplete
	// ReclassifyEachTurn never advances while the label persists.
	ReclassifyEachTurn
	// BoundedRetry stays until a fixed number of tries, then force-advances.
	BoundedRetry
	// FollowupOnQuestion loops while the reply itself asks something.
	FollowupOnQuestion
	// Inventory is the deterministic skill-category checklist.
	Inventory
)

func (c Completion) String() string {
	switch c {
	case Immediate:
		return "immediate"
	case IterateUntilComplete:
		return "iterate_until_complete"
	case ReclassifyEachTurn:
		return "reclassify_each_turn"
	case BoundedRetry:
		return "bounded_retry"
	case FollowupOnQuestion:
		return "followup_on_question"
	case Inventory:
		return "inventory"
	}
	return "unknown"
}

// Capture names a session variable filled from the answer when the
// question advances.
type Capture int

const (
	CaptureNone Capture = iota
	CaptureSelectedProblem
	CaptureCornerPiece
)

// ScenarioPolicy is the behaviour for one (question, scenario) pair.
type ScenarioPolicy struct {
	Completion Completion
	// Volatile scenarios are classified again on the next submission.
	Volatile bool

	// PromptKey is used on the first submission. Empty means scenario_N_respond.
	PromptKey string
	// FollowupPromptKey replaces PromptKey after the first submission.
	FollowupPromptKey string
	// FollowupTemplate builds an inline prompt after the first submission
	// from the latest answer. Takes precedence over FollowupPromptKey.
	FollowupTemplate func(answer string) string

	NoFollowups    bool
	SkipValidation bool
	// RetryCap bounds BoundedRetry. Zero means the question's MaxIterations.
	RetryCap int
	// MaxIterations overrides the question cap for this scenario only.
	MaxIterations  int
	AppendQuestion bool
	// Canned names a content block returned verbatim without an oracle call.
	Canned  string
	Capture Capture
}

// QuestionPolicy configures one question of a week.
type QuestionPolicy struct {
	Number    int
	Scenarios map[Scenario]ScenarioPolicy
	// Default is used when the classifier label is unclear or the call fails.
	Default       Scenario
	MaxIterations int
	// FullAnswers sends whole answers to the validation oracle instead of
	// 200-character previews.
	FullAnswers bool
	// SkipOnNo auto-completes the named question when this answer is a plain "no".
	SkipOnNo int
	// Intro decorates the question text emitted by Next.
	Intro func(state *ConversationState, week *content.WeekContent) string
}

// AnswerVariable is a named placeholder bound to a prior answer.
type AnswerVariable struct {
	Question int
	Fallback string
}

// Week is the policy table for one week of the program.
type Week struct {
	Number              int
	ClassifyTemperature float64
	MaxIterations       int
	Questions           map[int]QuestionPolicy

	// Generic is applied to classified questions missing from Questions, or
	// to scenarios a QuestionPolicy leaves out.
	Generic ScenarioPolicy

	// JoinAnswers substitutes every answer to a question joined by spaces
	// instead of only the latest one.
	JoinAnswers bool
	// AnswerAliases maps a literal placeholder to the question it refers to.
	AnswerAliases map[string]int
	// OptionalClauses are removed from prompts when the keyed question has
	// no answer yet.
	OptionalClauses map[int][]string
	// BlockAliases maps a placeholder name to the content blocks it expands to.
	BlockAliases map[string][]string
	Variables    map[string]AnswerVariable

	// GenericValidation validates questions that have no validation prompt
	// with a catch-all prompt. When false such questions count as complete.
	GenericValidation bool
	// SkipValidation lists questions that never call the validation oracle.
	SkipValidation map[int]bool

	// ClosingMessage replaces the content final response when set.
	ClosingMessage string
}

func (w *Week) maxIterations(qp QuestionPolicy) int {
	if qp.MaxIterations > 0 {
		return qp.MaxIterations
	}
	if w.MaxIterations > 0 {
		return w.MaxIterations
	}
	return 3
}

// questionPolicy merges the table entry with what the content offers, so a
// question only configured in content still gets a usable policy.
func (w *Week) questionPolicy(number int, week *content.WeekContent) QuestionPolicy {
	qp, ok := w.Questions[number]
	if !ok {
		qp = QuestionPolicy{Number: number}
	}
	qp.Number = number

	prompts := week.SystemPrompts[number]
	merged := make(map[Scenario]ScenarioPolicy, len(qp.Scenarios))
	for s, sp := range qp.Scenarios {
		merged[s] = sp
	}

	if _, classified := prompts["classifier"]; classified {
		for _, s := range scenariosInPrompts(prompts) {
			if _, ok := merged[s]; !ok {
				merged[s] = w.Generic
			}
		}
	} else if _, ok := merged[ScenarioDefault]; !ok {
		merged[ScenarioDefault] = ScenarioPolicy{Completion: FollowupOnQuestion, PromptKey: "default"}
	}
	qp.Scenarios = merged

	if qp.Default == ScenarioUnset {
		qp.Default = lowestScenario(merged)
	}
	return qp
}

// scenarioPolicy returns the policy for s, falling back to the question default.
func (qp QuestionPolicy) scenarioPolicy(s Scenario) (Scenario, ScenarioPolicy) {
	if sp, ok := qp.Scenarios[s]; ok {
		return s, sp
	}
	return qp.Default, qp.Scenarios[qp.Default]
}

func (qp QuestionPolicy) scenarioList() []Scenario {
	list := make([]Scenario, 0, len(qp.Scenarios))
	for s := range qp.Scenarios {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

func lowestScenario(scenarios map[Scenario]ScenarioPolicy) Scenario {
	best := ScenarioUnset
	for s := range scenarios {
		if s == ScenarioDefault && best != ScenarioUnset {
			continue
		}
		if best == ScenarioUnset || best == ScenarioDefault || s < best {
			best = s
		}
	}
	return best
}

// scenariosInPrompts finds every N used by a scenario_N_* key.
func scenariosInPrompts(prompts map[string]string) []Scenario {
	seen := map[Scenario]bool{}
	for key := range prompts {
		if !strings.HasPrefix(key, "scenario_") {
			continue
		}
		rest := strings.TrimPrefix(key, "scenario_")
		digits := rest
		if idx := strings.Index(rest, "_"); idx >= 0 {
			digits = rest[:idx]
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 || n > 5 {
			continue
		}
		seen[Scenario(n)] = true
	}
	list := make([]Scenario, 0, len(seen))
	for s := range seen {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
