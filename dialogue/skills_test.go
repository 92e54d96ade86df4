package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSkillCategories(t *testing.T) {
	assert.Equal(t,
		[]string{"hard skills", "growth skills"},
		ExtractSkillCategories("I listed Growth Skills first, then HARD SKILLS."))
	assert.Empty(t, ExtractSkillCategories("I am good with people"))
	assert.Equal(t, SkillCategories, ExtractSkillCategories(skillList))
}

func TestUpdateSkillInventory(t *testing.T) {
	state := NewConversationState(3, "Ada")

	updateSkillInventory(state, "soft skills: listening", true)
	assert.Equal(t, []string{"soft skills"}, state.SkillsIdentified)
	assert.Len(t, state.SkillsMissing, 4)

	updateSkillInventory(state, "hard skills: welding", false)
	assert.Equal(t, []string{"hard skills", "soft skills"}, state.SkillsIdentified)
	assert.Equal(t, []string{"technology skills", "growth skills", "experiential skills"}, state.SkillsMissing)

	updateSkillInventory(state, "technology skills only", true)
	assert.Equal(t, []string{"technology skills"}, state.SkillsIdentified)
}

func TestMissingSkillsMessage(t *testing.T) {
	msg := missingSkillsMessage("Ada", nil, SkillCategories, true)
	assert.Contains(t, msg, "Thanks for letting me know where you're at with the skills list, Ada.")
	assert.Contains(t, msg, "Let's list one skill you can claim for each of the five categories.")
	assert.Contains(t, msg, "- Experiential Skills: for example, leading volunteer projects, managing events")
	assert.NotContains(t, msg, "coordinating internships")

	msg = missingSkillsMessage("Ada", []string{"hard skills", "soft skills", "growth skills"}, []string{"technology skills"}, false)
	assert.Contains(t, msg, "Great job identifying skills for Hard Skills, Soft Skills, and Growth Skills so far, Ada.")
	assert.Contains(t, msg, "Could you add a skill or two for these remaining areas?")
	assert.NotContains(t, msg, "- Hard Skills")
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "", formatList(nil))
	assert.Equal(t, "Hard Skills", formatList([]string{"hard skills"}))
	assert.Equal(t, "Hard Skills, and Soft Skills", formatList([]string{"hard skills", "soft skills"}))
}
