package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the chat admission policy.
const (
	DecisionAllow  = "allow"
	DecisionReject = "reject"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Limits are the length bounds handed to the policy.
type Limits struct {
	MaxMessageChars      int `json:"max_message_chars"`
	MaxSelectedTextChars int `json:"max_selected_text_chars"`
}

// Input is the document a chat request is evaluated against.
// SelectedText is empty when the request carried none.
type Input struct {
	Message          string `json:"message"`
	SelectedText     string `json:"selected_text"`
	RequireSelection bool   `json:"require_selection"`
	Limits           Limits `json:"limits"`
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.decision"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path
// is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks a chat request against the policy.
// Returns: decision (allow, reject), reason, error
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "", "", fmt.Errorf("policy produced no decision")
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return "", "", fmt.Errorf("policy decision missing")
		}
		return decision, reason, nil
	default:
		return "", "", fmt.Errorf("unexpected policy result type %T", val)
	}
}

// DefaultPolicy is the default chat admission policy. Lengths are counted
// in Unicode code points on the raw text; only the emptiness check trims.
const DefaultPolicy = `
package chat_policy

import rego.v1

selected := object.get(input, "selected_text", "")

default decision := {"decision": "allow", "reason": ""}

decision := {"decision": "reject", "reason": "Message cannot be empty"} if {
	trim_space(input.message) == ""
} else := {"decision": "reject", "reason": sprintf("Message too long (max %v characters)", [input.limits.max_message_chars])} if {
	count(input.message) > input.limits.max_message_chars
} else := {"decision": "reject", "reason": sprintf("Selected text too long (max %v characters)", [input.limits.max_selected_text_chars])} if {
	count(selected) > input.limits.max_selected_text_chars
} else := {"decision": "reject", "reason": "selected_text is required for this endpoint"} if {
	input.require_selection
	trim_space(selected) == ""
}
`
