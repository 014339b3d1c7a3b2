package services

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxPromptDocumentRunes keeps very long CVs inside the model context window.
const maxPromptDocumentRunes = 40000

const summarizerSystemPrompt = `You are a hiring officer's personal assistant. You are experienced at the job and known for a concise summary style: two paragraphs of about 50 words each.`

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// SystemPrompt returns the persona used for every CV summary.
func (pb *PromptBuilder) SystemPrompt() string {
	return summarizerSystemPrompt
}

// BuildSummaryPrompt creates the user prompt asking for a two paragraph CV digest
// whose first line is the applicant's name.
func (pb *PromptBuilder) BuildSummaryPrompt(cvText, filename string) string {
	hint := ""
	if filename = strings.TrimSpace(filename); filename != "" {
		hint = fmt.Sprintf("\nThe CV was uploaded as %q; use this only as a last resort for the name.", filename)
	}

	return fmt.Sprintf(`The hiring officer wants you to summarize the key skills and experiences from an applicant's CV in two paragraphs of about 100 words in total.
The officer will compare your summary against the advertised job description to decide whether to hire the applicant, so do not miss any relevant experience or skill.

Make the first line a heading that contains only the applicant's name, then write the two paragraphs.%s

CV:
%s`, hint, truncateRunes(cvText, maxPromptDocumentRunes))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
