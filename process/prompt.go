package process

import "fmt"

const (
	DefaultMinConcepts = 3
	DefaultMaxConcepts = 5
	DefaultMaxChars    = 8000
)

// Keys names the fields the model must use for each concept object.
type Keys struct {
	Title       string
	Reference   string
	Description string
}

var DefaultKeys = Keys{
	Title:       "conceptTitle",
	Reference:   "reference",
	Description: "description",
}

type PromptBuilder struct {
	MinConcepts int
	MaxConcepts int
	// MaxChars is the number of characters of source text that end up in the
	// prompt. The cut is hard and may split a word.
	MaxChars int
	Keys     Keys
}

func NewPromptBuilder(maxChars int) PromptBuilder {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return PromptBuilder{
		MinConcepts: DefaultMinConcepts,
		MaxConcepts: DefaultMaxConcepts,
		MaxChars:    maxChars,
		Keys:        DefaultKeys,
	}
}

const conceptPrompt = `You are an expert teacher. Read the following transcript of an educational video and identify the %d to %d most important educational concepts it explains.
For each concept give a short title, a citation-style reference to where a student can read more about it (for example a textbook chapter and section), and a brief explanatory description.

Your output MUST be a valid JSON array of objects with keys %q, %q and %q. Do not add any text before or after the JSON.

Transcript: """%s"""`

const summaryPrompt = `Based on the following content, identify the top %d to %d key educational concepts discussed. For each concept, provide a brief, one-sentence explanation.

Content: """%s"""`

func (pb PromptBuilder) Build(text string) string {
	return fmt.Sprintf(conceptPrompt, pb.MinConcepts, pb.MaxConcepts, pb.Keys.Title, pb.Keys.Reference, pb.Keys.Description, Truncate(text, pb.MaxChars))
}

func (pb PromptBuilder) Summary(text string) string {
	return fmt.Sprintf(summaryPrompt, pb.MinConcepts, pb.MaxConcepts, Truncate(text, pb.MaxChars))
}

// Truncate returns the first limit characters of s.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
