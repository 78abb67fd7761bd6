// Package policy evaluates incoming user submissions against an OPA policy
// before the turn cycle runs.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.submission_policy.decision"),
		rego.Module("submission_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the submission policy. Input is a map with keys: content,
// thread_id. Returns: decision (allow, block), error.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default; an empty result means the module is
		// broken, not that the submission is allowed.
		return "", fmt.Errorf("policy returned no decision")
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("unexpected policy return type %T", val)
}

// DefaultPolicy is the default submission policy: reject blank input and
// oversized input, allow everything else.
const DefaultPolicy = `
package submission_policy

import rego.v1

default decision := "allow"

decision := "block" if {
	trim_space(input.content) == ""
}

decision := "block" if {
	count(input.content) > 8000
}
`
