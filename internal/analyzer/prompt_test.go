package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	req := Request{Language: "python", Code: "eval(input())"}

	p := BuildPrompt(req)

	assert.Contains(t, p, "Analyze the following python code")
	assert.Contains(t, p, "```python\neval(input())\n```")
	assert.Contains(t, p, `"security_score": 0-100`)
	assert.Contains(t, p, `"fix_example"`)
	assert.NotContains(t, p, "File:")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	name := "app.py"
	req := Request{Language: "python", Code: "x = 1", Filename: &name}

	first := BuildPrompt(req)
	assert.Equal(t, first, BuildPrompt(req))
	assert.True(t, strings.Contains(first, "File: app.py"))
}
