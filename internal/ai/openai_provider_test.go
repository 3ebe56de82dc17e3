package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"niena/internal/config"
	"niena/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, content string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		data := make([]map[string]any, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(i), 0.5, 0.25},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestOpenAIBackendInterviewEvaluation(t *testing.T) {
	answer := "```json\n" + `{
		"overallScore": 72,
		"summary": "Solid fundamentals",
		"strengths": ["clear communication"],
		"improvements": ["quantify impact"],
		"questions": [{"question": "Tell me about yourself", "answerSummary": "Background in Go", "score": 70, "feedback": "Be concise"}],
		"recommendation": "yes"
	}` + "\n```"
	server, bodies := newOpenAIServer(t, answer)

	cfg := stageConfig()
	cfg.Provider = config.ProviderOpenAI
	cfg.BaseURL = server.URL
	cfg.APIKey = "test-key"
	p := newProviderWithBackend(config.StageInterview, cfg, newOpenAIBackend(cfg), testLogger())

	feedback, usage, err := p.EvaluateInterview(context.Background(), types.EvaluateInterviewInput{
		Role:          "Backend Engineer",
		InterviewType: "VOICE",
		Transcript:    "Q: Tell me about yourself\nA: I build Go services",
	})
	require.NoError(t, err)
	assert.Equal(t, 72, feedback.OverallScore)
	assert.Equal(t, "yes", feedback.Recommendation)
	require.Len(t, feedback.Questions, 1)
	assert.Equal(t, int64(20), usage.TotalTokens)

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, "fake-model", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	raw, err := json.Marshal(system["content"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "JSON Schema")
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	server, _ := newOpenAIServer(t, "")

	e := NewOpenAIEmbedder(config.EmbeddingConfig{
		Provider:   config.ProviderOpenAI,
		Model:      "text-embedding-3-small",
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Dimensions: 3,
		BatchSize:  2,
	}, config.CircuitBreakerConfig{}, testLogger())

	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 0.5, 0.25}, vectors[0])
	assert.Equal(t, []float32{1, 0.5, 0.25}, vectors[1])
	assert.Equal(t, []float32{0, 0.5, 0.25}, vectors[2])
	assert.Equal(t, 3, e.Dimensions())
}
