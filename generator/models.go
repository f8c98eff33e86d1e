package generator

// GroqBaseURL is the OpenAI-compatible endpoint served by Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// GroqModels is the allow-list of generation models the session can
// select from.
var GroqModels = []string{
	"llama-3.1-70b-versatile",
	"llama-3.1-8b-instant",
	"llama3-8b-8192",
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
	"gemma2-9b-it",
}

func IsGroqModel(name string) bool {
	for _, model := range GroqModels {
		if model == name {
			return true
		}
	}
	return false
}
