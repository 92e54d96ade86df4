package dialogue

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"drivendev/content"
)

const (
	defaultSelectedProblem     = "the problem you identified earlier"
	defaultSelectedCornerPiece = "the corner piece you described earlier"
)

// answerPlaceholder accepts every phrasing the prompt authors have used:
// {Answer to question N}, {Answers to questions N}, {Response from N},
// an optional "(description)" and single or double braces.
var answerPlaceholder = regexp.MustCompile(`\{\{?(?:Answers?|Responses?) (?:to|from) (?:questions? )?(\d+)(?: \(([^)]*)\))?\}\}?`)

var doubleSpace = regexp.MustCompile(`[ \t]{2,}`)

// Substitute fills a prompt or question template for the given state.
func Substitute(template string, state *ConversationState, week *content.WeekContent, table *Week) string {
	out := template

	name := state.Name
	out = strings.ReplaceAll(out, "{name}", name)
	out = strings.ReplaceAll(out, "{Name}", name)

	out = substituteAnswers(out, state, table)
	out = substituteBlocks(out, week, table)
	out = substituteVariables(out, state, table)
	return out
}

func substituteAnswers(text string, state *ConversationState, table *Week) string {
	text = canonicalizeAliases(text, table.AnswerAliases)

	// Clauses tied to a question go first, while the placeholder text they
	// surround is still intact.
	for q, clauses := range table.OptionalClauses {
		if len(state.Answers[q]) > 0 {
			continue
		}
		for _, clause := range clauses {
			text = strings.ReplaceAll(text, clause, "")
			text = strings.ReplaceAll(text, strings.TrimSpace(clause), "")
		}
	}

	matches := answerPlaceholder.FindAllStringSubmatch(text, -1)
	seen := map[string]bool{}
	for _, m := range matches {
		placeholder := m[0]
		if seen[placeholder] {
			continue
		}
		seen[placeholder] = true

		q, _ := strconv.Atoi(m[1])
		description := m[2]
		if answer, ok := answerFor(state, q, table.JoinAnswers); ok {
			text = strings.ReplaceAll(text, placeholder, answer)
			continue
		}
		text = dropPlaceholder(text, placeholder, description)
	}

	text = doubleSpace.ReplaceAllString(text, " ")
	return text
}

// canonicalizeAliases rewrites week-specific literals, whose numbers do not
// match the question they mean, into the canonical form.
func canonicalizeAliases(text string, aliases map[string]int) string {
	for literal, q := range aliases {
		if !strings.Contains(text, literal) {
			continue
		}
		canonical := fmt.Sprintf("{Answer to question %d}", q)
		if m := answerPlaceholder.FindStringSubmatch(literal); m != nil && m[2] != "" {
			canonical = fmt.Sprintf("{Answer to question %d (%s)}", q, m[2])
		}
		text = strings.ReplaceAll(text, literal, canonical)
	}
	return text
}

func answerFor(state *ConversationState, q int, join bool) (string, bool) {
	answers := state.Answers[q]
	if len(answers) == 0 {
		return "", false
	}
	if join {
		return strings.Join(answers, " "), true
	}
	return answers[len(answers)-1], true
}

// dropPlaceholder removes an unanswered placeholder together with the words
// that only make sense around an answer.
func dropPlaceholder(text, placeholder, description string) string {
	ph := regexp.QuoteMeta(placeholder)

	text = regexp.MustCompile(`Based on their [^(){}\n]+?\s*\(`+ph+`\),\s*`).ReplaceAllString(text, "")

	basedOn := "based on their"
	if word := firstWord(description); word != "" {
		basedOn += " " + word
	}
	text = regexp.MustCompile(`based on their \(?`+ph+`\)?`).ReplaceAllLiteralString(text, basedOn)

	text = regexp.MustCompile(`their (\w+) \(?`+ph+`\)?`).ReplaceAllString(text, "their $1")
	text = regexp.MustCompile(`[ \t]?\(`+ph+`\)`).ReplaceAllString(text, "")

	if strings.HasPrefix(placeholder, "{{") {
		noun := lastWord(description)
		if noun == "" {
			noun = "answer"
		}
		text = strings.ReplaceAll(text, placeholder, "their "+noun)
	}
	return strings.ReplaceAll(text, placeholder, "")
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func substituteBlocks(text string, week *content.WeekContent, table *Week) string {
	for alias, blocks := range table.BlockAliases {
		placeholder := "{" + alias + "}"
		if !strings.Contains(text, placeholder) {
			continue
		}
		parts := make([]string, 0, len(blocks))
		for _, name := range blocks {
			parts = append(parts, week.ContentBlocks[name])
		}
		text = strings.ReplaceAll(text, placeholder, strings.Join(parts, "\n\n"))
	}

	names := make([]string, 0, len(week.ContentBlocks))
	for name := range week.ContentBlocks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		text = strings.ReplaceAll(text, "{"+name+"}", week.ContentBlocks[name])
	}
	return text
}

func substituteVariables(text string, state *ConversationState, table *Week) string {
	problem := state.SelectedProblem
	if problem == "" {
		problem = defaultSelectedProblem
	}
	corner := state.SelectedCornerPiece
	if corner == "" {
		corner = defaultSelectedCornerPiece
	}
	text = strings.ReplaceAll(text, "{Selected_problem}", problem)
	text = strings.ReplaceAll(text, "{Selected_corner_piece}", corner)
	text = strings.ReplaceAll(text, "{skill_list}", skillList)

	for name, variable := range table.Variables {
		placeholder := "{" + name + "}"
		if !strings.Contains(text, placeholder) {
			continue
		}
		value, ok := state.LatestAnswer(variable.Question)
		if !ok || strings.TrimSpace(value) == "" {
			value = variable.Fallback
		}
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return text
}
