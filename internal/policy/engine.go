// Package policy decides whether an upload is admitted before any remote
// call is made.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine for upload admission.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.upload_policy.decision"),
		rego.Module("upload_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// UploadInput is the policy input for one upload attempt.
type UploadInput struct {
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	MaxBytes int64  `json:"max_bytes"`
}

// EvaluateUpload checks the upload policy. Returns the decision
// (allow or block) and an error on evaluation failure.
func (e *Engine) EvaluateUpload(ctx context.Context, input UploadInput) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default, so an empty result means the
		// module is broken rather than the input disallowed.
		return "", fmt.Errorf("policy returned no decision")
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("policy returned unexpected type %T", val)
}

// DefaultPolicy admits the fixed allow-list of spreadsheet, CSV, PDF and
// common image formats, bounded by the configured size limit.
const DefaultPolicy = `
package upload_policy

import rego.v1

default decision := "block"

allowed_extensions := {"xlsx", "xlsm", "xls", "csv", "pdf", "png", "jpg", "jpeg"}

decision := "allow" if {
	extension_allowed
	input.bytes <= input.max_bytes
}

extension_allowed if {
	some ext in allowed_extensions
	endswith(lower(input.filename), sprintf(".%s", [ext]))
}
`
