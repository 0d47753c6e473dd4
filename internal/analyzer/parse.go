package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Fallback summaries, one per failure class.
const (
	SummaryCallFailed    = "Analysis failed: the analysis provider could not be reached"
	SummaryEmptyResponse = "Analysis failed: Empty response from AI"
	SummaryParseFailed   = "Analysis failed: could not parse AI response or validation error"
)

var (
	ErrEmptyResponse = errors.New("analyzer: empty response")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// wireResult mirrors Result with pointers so "field missing" and "field
// empty" can be told apart: every field must be present, empty strings are
// accepted.
type wireResult struct {
	Issues        []wireIssue `json:"issues"         validate:"required,dive"`
	Summary       *string     `json:"summary"        validate:"required"`
	SecurityScore *int        `json:"security_score" validate:"required,min=0,max=100"`
}

type wireIssue struct {
	Type           *string `json:"type"           validate:"required"`
	Location       *string `json:"location"       validate:"required"`
	Description    *string `json:"description"    validate:"required"`
	Severity       *string `json:"severity"       validate:"required"`
	Recommendation *string `json:"recommendation" validate:"required"`
	FixExample     *string `json:"fix_example"    validate:"required"`
}

// ParseResult decodes a model reply into a Result. Markdown code fences
// around the JSON are tolerated; anything else that does not match the
// expected shape is an error.
func ParseResult(content string) (*Result, error) {
	content = stripFences(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var w wireResult
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return nil, fmt.Errorf("analyzer: decoding reply: %w", err)
	}
	if err := validate.Struct(&w); err != nil {
		return nil, fmt.Errorf("analyzer: reply shape: %w", err)
	}

	res := &Result{
		Issues:        make([]Issue, 0, len(w.Issues)),
		Summary:       *w.Summary,
		SecurityScore: *w.SecurityScore,
	}
	for _, wi := range w.Issues {
		res.Issues = append(res.Issues, Issue{
			Type:           *wi.Type,
			Location:       *wi.Location,
			Description:    *wi.Description,
			Severity:       *wi.Severity,
			Recommendation: *wi.Recommendation,
			FixExample:     *wi.FixExample,
		})
	}
	return res, nil
}

// Fallback is the degraded result: no issues, score 0.
func Fallback(summary string) *Result {
	return &Result{
		Issues:        []Issue{},
		Summary:       summary,
		SecurityScore: 0,
		Degraded:      true,
	}
}

// Complete applies the degrade policy shared by every backend: a call
// error, an empty reply or an unparseable reply each become a Fallback and
// a warning in the log.
func Complete(logger *slog.Logger, provider, content string, callErr error) *Result {
	if callErr != nil {
		logger.Warn("analysis call failed", "provider", provider, "error", callErr)
		return Fallback(SummaryCallFailed)
	}

	res, err := ParseResult(content)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		logger.Warn("analysis returned empty content", "provider", provider)
		return Fallback(SummaryEmptyResponse)
	case err != nil:
		logger.Warn("analysis reply rejected", "provider", provider, "error", err)
		return Fallback(SummaryParseFailed)
	}

	logger.Debug("analysis complete", "provider", provider, "issues", len(res.Issues), "score", res.SecurityScore)
	return res
}

func isLanguageTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '-' || r == '_'
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line, which may carry a language tag.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		// One-line reply such as ```json{...}```.
		s = strings.TrimLeftFunc(strings.TrimPrefix(s, "```"), isLanguageTagRune)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
