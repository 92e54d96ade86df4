package modelapi

// CLASSIFIER_SYSTEM_PROMPT frames every scenario classification call. The
// question's own classifier prompt travels in the user message.
const CLASSIFIER_SYSTEM_PROMPT = "You are a scenario classifier. Respond with only the scenario identifier."

const CLASSIFIER_USER_FORMAT = "%s\n\nUser's response: %s"

// NO_FOLLOWUPS_INSTRUCTION is appended to response prompts for questions
// that must not end on a question of their own.
const NO_FOLLOWUPS_INSTRUCTION = "Important: If the user's response already satisfies the criteria for this question and it is considered complete (or the classified scenario instructs to move on), do not ask any additional questions. Conclude your reply without further questions so we can proceed to the next question."

// APOLOGY_FORMAT is shown in place of a reply when the response oracle fails.
const APOLOGY_FORMAT = "I apologize, but I encountered an error processing your response. Please try again. Error: %s"

const GENERIC_VALIDATION_PROMPT = `You are validating if a user has provided a meaningful response to the question.

The user has provided at least one response. Determine if they have given a meaningful answer.
- If they provided any relevant response related to the question → COMPLETE
- If they gave vague or unrelated responses → INCOMPLETE
- Only mark as incomplete if they gave NO answer at all or completely unrelated response

Respond in this exact format:
COMPLETE: Yes or No
MISSING: [List specific items that are missing, or "None" if all provided]

Example responses:
- If user provided meaningful response: "COMPLETE: Yes\nMISSING: None"
- If no meaningful response provided: "COMPLETE: No\nMISSING: A meaningful response to the question"
`

// STYLE_INSTRUCTION steers text-to-speech voices toward NOVA's coaching tone.
const STYLE_INSTRUCTION = `
You are "NOVA", a warm, steady career coach.
Speak at a calm, unhurried pace with a friendly, encouraging tone.
Sound supportive and patient, like someone who believes in the listener.
Keep emphasis gentle. Never sound rushed or salesy.
`

const (
	RESPONSE_TEMPERATURE   = 0.7
	VALIDATION_TEMPERATURE = 0.3
)
