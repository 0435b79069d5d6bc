package rag

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FallbackAnswer is the exact reply the model is told to give when the
// supplied material does not contain the answer.
const FallbackAnswer = "I don't know based on the textbook content."

// Templates holds the instruction text of the prompt. Fields left empty in a
// YAML file keep their defaults.
type Templates struct {
	System          string `yaml:"system"`
	Grounding       string `yaml:"grounding"`
	SelectionHeader string `yaml:"selection_header"`
	SelectionRule   string `yaml:"selection_rule"`
	ContextHeader   string `yaml:"context_header"`
	NoContext       string `yaml:"no_context"`
	QuestionLabel   string `yaml:"question_label"`
	AnswerLabel     string `yaml:"answer_label"`
}

// DefaultTemplates returns the built-in instruction text.
func DefaultTemplates() Templates {
	return Templates{
		System: "You are an AI tutor for the Physical AI & Humanoid Robotics textbook.",
		Grounding: "Use ONLY the material supplied below to answer. " +
			"If the answer is not in the provided content, say \"" + FallbackAnswer + "\" " +
			"Be concise and accurate, and cite the source URL of the passages you use.",
		SelectionHeader: "Selected text (highest priority):",
		SelectionRule: "The user selected the passage above. Focus on it and prefer it over " +
			"the retrieved content when they disagree.",
		ContextHeader: "Retrieved content:",
		NoContext:     "(no retrieved content)",
		QuestionLabel: "Question:",
		AnswerLabel:   "Answer:",
	}
}

// LoadTemplates reads a YAML template file over the defaults.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}

	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return t, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}

	merge(&t.System, override.System)
	merge(&t.Grounding, override.Grounding)
	merge(&t.SelectionHeader, override.SelectionHeader)
	merge(&t.SelectionRule, override.SelectionRule)
	merge(&t.ContextHeader, override.ContextHeader)
	merge(&t.NoContext, override.NoContext)
	merge(&t.QuestionLabel, override.QuestionLabel)
	merge(&t.AnswerLabel, override.AnswerLabel)
	return t, nil
}

func merge(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
