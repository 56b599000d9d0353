package persona

// Persona is a named system-prompt prefix selectable per session.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PromptPrefix string `json:"promptPrefix"`
}

// CustomID marks the single registry entry whose prompt text is
// user-supplied. The editable text itself lives on the session, so two
// sessions never see each other's edits.
const CustomID = "custom"

// Seed provides the built-in personas. The first entry is the default
// that unknown selections silently fall back to.
func Seed() []Persona {
	return []Persona{
		{
			ID:           "helpful-assistant",
			Name:         "Helpful Assistant",
			PromptPrefix: "You are a helpful, concise assistant. Answer the user's question directly and admit when you are unsure.",
		},
		{
			ID:           "socratic-tutor",
			Name:         "Socratic Tutor",
			PromptPrefix: "You are a patient tutor. Guide the user toward the answer with probing questions instead of stating it outright.",
		},
		{
			ID:           "code-reviewer",
			Name:         "Code Reviewer",
			PromptPrefix: "You are a senior engineer reviewing code. Point out bugs and style issues plainly, and suggest concrete fixes.",
		},
		{
			ID:           "storyteller",
			Name:         "Storyteller",
			PromptPrefix: "You are an imaginative storyteller. Respond in vivid narrative prose, staying consistent with details the user gives you.",
		},
		{
			ID:           CustomID,
			Name:         "Custom",
			PromptPrefix: "You are an assistant.",
		},
	}
}
