package analyzer

import (
	"fmt"
	"strings"
)

const SystemPrompt = "You are a senior cybersecurity expert specializing in SAST (Static Application Security Testing)."

const resultShape = `{
    "issues": [
        {
            "type": "Vulnerability Type",
            "location": "Line numbers or context",
            "description": "Why is this dangerous?",
            "severity": "High/Medium/Low",
            "recommendation": "How to fix",
            "fix_example": "Code snippet"
        }
    ],
    "summary": "Brief executive summary of findings",
    "security_score": 0-100 (integer, where 100 is perfectly secure)
}`

// BuildPrompt renders the user message for req. Output depends only on req.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following %s code for OWASP Top 10 vulnerabilities and architectural flaws.\n", req.Language)
	if req.Filename != nil && *req.Filename != "" {
		fmt.Fprintf(&b, "File: %s\n", *req.Filename)
	}
	b.WriteString("\nCode:\n")
	fmt.Fprintf(&b, "```%s\n%s\n```\n\n", req.Language, req.Code)
	b.WriteString("Return the result strictly in this JSON format:\n")
	b.WriteString(resultShape)
	b.WriteString("\n")

	return b.String()
}
