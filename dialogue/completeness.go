package dialogue

import (
	"context"
	"fmt"
	"strings"

	"drivendev/content"
	"drivendev/modelapi"
)

const (
	validationErrorMissing = "Validation error occurred"
	missingUnknown         = "Unknown"
	missingNone            = "None"
	answerPreviewLength    = 200
)

// ParseValidation reads a "COMPLETE: Yes/No" / "MISSING: ..." reply.
func ParseValidation(reply string) (bool, string) {
	text := strings.TrimSpace(reply)
	compact := strings.ReplaceAll(strings.ToUpper(text), " ", "")
	complete := strings.Contains(text, "COMPLETE: Yes") || strings.Contains(compact, "COMPLETE:YES")

	missing := missingUnknown
	if idx := strings.LastIndex(text, "MISSING:"); idx >= 0 {
		if rest := strings.TrimSpace(text[idx+len("MISSING:"):]); rest != "" {
			missing = rest
		}
	}
	return complete, missing
}

// validationContext is the user message sent with a validation prompt.
func validationContext(question int, questionText, latestResponse string, answers []string, full bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d: %s\n\n", question, questionText)
	fmt.Fprintf(&b, "NOVA's latest response: %s\n\n", latestResponse)
	fmt.Fprintf(&b, "User's responses so far: %d response(s)\n", len(answers))
	for i, answer := range answers {
		if full {
			fmt.Fprintf(&b, "  Response %d: %s\n", i+1, answer)
			continue
		}
		fmt.Fprintf(&b, "  Response %d: %s...\n", i+1, preview(answer, answerPreviewLength))
	}
	return b.String()
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// validationPrompt picks the prompt for q under scenario s. ok is false when
// the question has nothing to validate against and counts as complete.
func (w *Week) validationPrompt(prompts map[string]string, s Scenario) (string, bool) {
	if n := s.Number(); n > 0 {
		if p, ok := prompts[fmt.Sprintf("validation_scenario_%d", n)]; ok && strings.TrimSpace(p) != "" {
			return p, true
		}
	}
	if p, ok := prompts["validation"]; ok && strings.TrimSpace(p) != "" {
		return p, true
	}
	if w.GenericValidation {
		return modelapi.GENERIC_VALIDATION_PROMPT, true
	}
	return "", false
}

// CheckCompleteness decides whether the answers to q satisfy the question.
// Skip-listed questions and scenarios are complete without an oracle call.
func (e *Engine) CheckCompleteness(ctx context.Context, table *Week, week *content.WeekContent, q int, latestResponse string, answers []string, scenario Scenario) (bool, string) {
	if table.SkipValidation[q] {
		return true, missingNone
	}
	qp := table.questionPolicy(q, week)
	if _, sp := qp.scenarioPolicy(scenario); sp.SkipValidation {
		return true, missingNone
	}

	prompt, ok := table.validationPrompt(week.SystemPrompts[q], scenario)
	if !ok {
		return true, missingNone
	}

	conversation := validationContext(q, week.Questions[q], latestResponse, answers, qp.FullAnswers)
	return e.oracle.Validate(ctx, prompt, conversation)
}
