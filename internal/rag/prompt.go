package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// Composer builds the generation prompt from the question, the retrieved
// passages and an optional user selection.
type Composer struct {
	templates Templates
	maxChars  int
}

// NewComposer creates a composer. maxChars bounds the prompt length in
// Unicode code points; zero or less disables the bound.
func NewComposer(templates Templates, maxChars int) *Composer {
	return &Composer{templates: templates, maxChars: maxChars}
}

// Compose returns the prompt and the passages it cites. When the prompt
// would exceed the length bound, passages are dropped lowest-ranked first.
// If even the passage-free prompt is too long it is returned as is.
func (c *Composer) Compose(query string, passages []domain.Passage, selectedText *string) (string, []domain.Passage) {
	n := len(passages)
	for {
		prompt := c.build(query, passages[:n], selectedText)
		if c.maxChars <= 0 || n == 0 || utf8.RuneCountInString(prompt) <= c.maxChars {
			return prompt, passages[:n]
		}
		n--
	}
}

func (c *Composer) build(query string, passages []domain.Passage, selectedText *string) string {
	t := c.templates
	var b strings.Builder

	b.WriteString(t.System)
	b.WriteString("\n")
	b.WriteString(t.Grounding)
	b.WriteString("\n\n")

	if selectedText != nil && strings.TrimSpace(*selectedText) != "" {
		b.WriteString(t.SelectionHeader)
		b.WriteString("\n---\n")
		b.WriteString(strings.TrimSpace(*selectedText))
		b.WriteString("\n---\n")
		b.WriteString(t.SelectionRule)
		b.WriteString("\n\n")
	}

	b.WriteString(t.ContextHeader)
	b.WriteString("\n")
	if len(passages) == 0 {
		b.WriteString(t.NoContext)
		b.WriteString("\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] Source: %s\n%s\n\n", i+1, p.SourceURL, strings.TrimSpace(p.Text))
	}

	b.WriteString("\n")
	b.WriteString(t.QuestionLabel)
	b.WriteString(" ")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\n\n")
	b.WriteString(t.AnswerLabel)
	return b.String()
}
