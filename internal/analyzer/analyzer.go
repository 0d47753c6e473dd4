// Package analyzer defines the code analysis contract and the pieces every
// model backend shares: the prompt, the reply parser and the fallback.
package analyzer

import (
	"context"
)

type Request struct {
	Code      string  `json:"code"`
	Language  string  `json:"language"`
	Filename  *string `json:"filename,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
}

type Issue struct {
	Type           string `json:"type"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
	FixExample     string `json:"fix_example"`
}

// Result is the structured report returned to clients. Degraded marks a
// fallback result produced after the model call or its parsing failed.
type Result struct {
	Issues        []Issue `json:"issues"`
	Summary       string  `json:"summary"`
	SecurityScore int     `json:"security_score"`
	Degraded      bool    `json:"-"`
}

// Analyzer never fails: any backend or parse problem yields a degraded
// Result instead of an error.
type Analyzer interface {
	AnalyzeCode(ctx context.Context, req Request) *Result
}
