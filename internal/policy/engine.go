// Package policy admits or rejects chat input with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allow  bool
	Reason string
}

// Engine is the OPA policy engine.
type Engine struct {
	query    rego.PreparedEvalQuery
	maxChars int
}

// NewEngine prepares policyContent, which must define data.chat_guard.decision.
// maxChars is passed to the policy as input.max_chars; zero disables the length check.
func NewEngine(ctx context.Context, policyContent string, maxChars int) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_guard.decision"),
		rego.Module("chat_guard.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, maxChars: maxChars}, nil
}

// Evaluate checks one chat message.
func (e *Engine) Evaluate(ctx context.Context, sessionID, message string) (Decision, error) {
	input := map[string]interface{}{
		"message":    message,
		"session_id": sessionID,
		"max_chars":  e.maxChars,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// The policy defines a default; an empty result set means it was replaced by one without.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: true}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	allow, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return Decision{Allow: allow, Reason: reason}, nil
}

// DefaultPolicy rejects blank and over-long messages.
const DefaultPolicy = `
package chat_guard

default decision := {"allow": true, "reason": ""}

decision := {"allow": false, "reason": "Message must not be empty"} if {
	trim_space(input.message) == ""
} else := {"allow": false, "reason": sprintf("Message exceeds %d characters", [input.max_chars])} if {
	input.max_chars > 0
	count(input.message) > input.max_chars
}
`
