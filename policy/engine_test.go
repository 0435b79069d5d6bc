package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{MaxMessageChars: 10000, MaxSelectedTextChars: 5000}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)
	return engine
}

func TestDefaultPolicy(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		input    Input
		decision string
		reason   string
	}{
		{
			name:     "plain question",
			input:    Input{Message: "What is Physical AI?"},
			decision: DecisionAllow,
		},
		{
			name:     "empty message",
			input:    Input{Message: ""},
			decision: DecisionReject,
			reason:   "Message cannot be empty",
		},
		{
			name:     "whitespace only",
			input:    Input{Message: " \n\t "},
			decision: DecisionReject,
			reason:   "Message cannot be empty",
		},
		{
			name:     "message at limit",
			input:    Input{Message: strings.Repeat("a", 10000)},
			decision: DecisionAllow,
		},
		{
			name:     "message over limit",
			input:    Input{Message: strings.Repeat("a", 10001)},
			decision: DecisionReject,
			reason:   "Message too long (max 10000 characters)",
		},
		{
			name:     "trailing whitespace counts toward limit",
			input:    Input{Message: strings.Repeat("a", 10000) + " "},
			decision: DecisionReject,
			reason:   "Message too long (max 10000 characters)",
		},
		{
			name:     "padding does not hide length",
			input:    Input{Message: "a" + strings.Repeat(" ", 20000)},
			decision: DecisionReject,
			reason:   "Message too long (max 10000 characters)",
		},
		{
			name:     "limit counts code points",
			input:    Input{Message: strings.Repeat("é", 10000)},
			decision: DecisionAllow,
		},
		{
			name:     "selection at limit",
			input:    Input{Message: "Explain", SelectedText: strings.Repeat("b", 5000)},
			decision: DecisionAllow,
		},
		{
			name:     "selection over limit",
			input:    Input{Message: "Explain", SelectedText: strings.Repeat("b", 5001)},
			decision: DecisionReject,
			reason:   "Selected text too long (max 5000 characters)",
		},
		{
			name:     "selection required but missing",
			input:    Input{Message: "Explain", RequireSelection: true},
			decision: DecisionReject,
			reason:   "selected_text is required for this endpoint",
		},
		{
			name:     "selection required and present",
			input:    Input{Message: "Explain", SelectedText: "ZMP", RequireSelection: true},
			decision: DecisionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Limits = testLimits
			decision, reason, err := engine.Evaluate(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.decision, decision)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
			}
		})
	}
}

func TestNewEngineFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.rego")
	content := `
package chat_policy

import rego.v1

default decision := "allow"

decision := "reject" if {
	contains(lower(input.message), "homework")
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	engine, err := NewEngineFromFile(context.Background(), path)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(context.Background(), Input{Message: "Do my homework", Limits: testLimits})
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, decision)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package chat_policy\n\ndecision := {")
	assert.Error(t, err)

	_, err = NewEngineFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)
}
