package dialogue

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SkillCategories is the ordered week 3 inventory.
var SkillCategories = []string{
	"hard skills",
	"soft skills",
	"technology skills",
	"growth skills",
	"experiential skills",
}

var skillExamples = map[string][]string{
	"hard skills":         {"Excel modeling", "CNC machining", "statistical analysis"},
	"soft skills":         {"facilitating team meetings", "conflict resolution", "client communication"},
	"technology skills":   {"SQL queries", "Salesforce automations", "Adobe Creative Cloud"},
	"growth skills":       {"learning a new certification", "attending a workshop", "seeking mentorship"},
	"experiential skills": {"leading volunteer projects", "managing events", "coordinating internships"},
}

const skillList = "hard skills, soft skills, technology skills, growth skills, and experiential skills"

// title builds a fresh Caser per call since a Caser must not be shared
// between goroutines.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// ExtractSkillCategories returns the categories named in text, in inventory
// order. Matching is a case-insensitive substring test.
func ExtractSkillCategories(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, category := range SkillCategories {
		if strings.Contains(lower, category) {
			found = append(found, category)
		}
	}
	return found
}

// updateSkillInventory folds the categories named in answer into state.
// reset starts the inventory over, as on the first answer to the question.
func updateSkillInventory(state *ConversationState, answer string, reset bool) {
	if reset {
		state.SkillsIdentified = nil
		state.SkillsMissing = nil
	}

	identified := map[string]bool{}
	for _, c := range state.SkillsIdentified {
		identified[c] = true
	}
	for _, c := range ExtractSkillCategories(answer) {
		identified[c] = true
	}

	state.SkillsIdentified = nil
	state.SkillsMissing = nil
	for _, c := range SkillCategories {
		if identified[c] {
			state.SkillsIdentified = append(state.SkillsIdentified, c)
		} else {
			state.SkillsMissing = append(state.SkillsMissing, c)
		}
	}
}

// missingSkillsMessage is the deterministic prompt listing what is left.
func missingSkillsMessage(name string, identified, missing []string, promptAll bool) string {
	var lines []string
	if len(identified) > 0 {
		lines = append(lines, fmt.Sprintf("Great job identifying skills for %s so far, %s.", formatList(identified), name))
	} else {
		lines = append(lines, fmt.Sprintf("Thanks for letting me know where you're at with the skills list, %s.", name))
	}
	lines = append(lines, "It's totally normal for some categories to take longer to nail down.")
	if promptAll {
		lines = append(lines, "Let's list one skill you can claim for each of the five categories. For each area below, share your own example of something you've done or can do:")
	} else {
		lines = append(lines, "Could you add a skill or two for these remaining areas? Feel free to describe your own examples:")
	}
	for _, c := range missing {
		examples := skillExamples[c]
		if len(examples) > 2 {
			examples = examples[:2]
		}
		if len(examples) == 0 {
			lines = append(lines, "- "+title(c))
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: for example, %s", title(c), strings.Join(examples, ", ")))
	}
	lines = append(lines, "Send your own skills for each area above, and we'll keep moving once the full list feels complete.")
	return strings.Join(lines, "\n")
}

// formatList title-cases items and joins them as "A", "A, and B" or
// "A, B, and C".
func formatList(items []string) string {
	titled := make([]string, len(items))
	for i, item := range items {
		titled[i] = title(item)
	}
	switch len(titled) {
	case 0:
		return ""
	case 1:
		return titled[0]
	}
	return strings.Join(titled[:len(titled)-1], ", ") + ", and " + titled[len(titled)-1]
}
