package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/secure-review/internal/analyzer"
)

// fakeOpenAI answers /v1/chat/completions with a fixed status and body.
type fakeOpenAI struct {
	status int
	body   any
	calls  atomic.Int32
	last   map[string]any
}

func (f *fakeOpenAI) start(t *testing.T) *Analyzer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.last = req

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		json.NewEncoder(w).Encode(f.body)
	}))
	t.Cleanup(srv.Close)

	return New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, slog.New(slog.DiscardHandler))
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

var testRequest = analyzer.Request{Language: "go", Code: `db.Query("SELECT * FROM t WHERE id=" + id)`}

func TestAnalyzeCode_Success(t *testing.T) {
	f := &fakeOpenAI{
		status: http.StatusOK,
		body: completion(`{"issues":[{"type":"SQL Injection","location":"line 1","description":"concatenated query",` +
			`"severity":"High","recommendation":"use placeholders","fix_example":"db.Query(\"... id=$1\", id)"}],` +
			`"summary":"injection","security_score":20}`),
	}
	a := f.start(t)

	res := a.AnalyzeCode(context.Background(), testRequest)

	require.NotNil(t, res)
	assert.False(t, res.Degraded)
	assert.Equal(t, 20, res.SecurityScore)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "SQL Injection", res.Issues[0].Type)

	assert.Equal(t, DefaultModel, f.last["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, f.last["response_format"])
	msgs := f.last["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, analyzer.SystemPrompt, msgs[0].(map[string]any)["content"])
}

func TestAnalyzeCode_Degrades(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        any
		wantSummary string
	}{
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			body:        map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}},
			wantSummary: analyzer.SummaryCallFailed,
		},
		{
			name:        "empty content",
			status:      http.StatusOK,
			body:        completion(""),
			wantSummary: analyzer.SummaryEmptyResponse,
		},
		{
			name:        "no choices",
			status:      http.StatusOK,
			body:        map[string]any{"id": "x", "object": "chat.completion", "choices": []any{}},
			wantSummary: analyzer.SummaryEmptyResponse,
		},
		{
			name:        "malformed json",
			status:      http.StatusOK,
			body:        completion("Sorry, I cannot help with that."),
			wantSummary: analyzer.SummaryParseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeOpenAI{status: tt.status, body: tt.body}
			a := f.start(t)

			res := a.AnalyzeCode(context.Background(), testRequest)

			require.NotNil(t, res)
			assert.True(t, res.Degraded)
			assert.Empty(t, res.Issues)
			assert.Equal(t, 0, res.SecurityScore)
			assert.Equal(t, tt.wantSummary, res.Summary)
			assert.Equal(t, int32(1), f.calls.Load(), "no retries")
		})
	}
}

func TestNew_CustomModel(t *testing.T) {
	a := New(Config{APIKey: "k", Model: "gpt-4o-mini"}, slog.New(slog.DiscardHandler))
	assert.Equal(t, "gpt-4o-mini", a.model)
}
