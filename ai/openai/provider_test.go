package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/lorekeeper/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCompatServer fakes the two OpenAI-compatible endpoints the provider uses.
func newCompatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			var req struct {
				Input []string `json:"input"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			data := make([]map[string]any, len(req.Input))
			for i := range req.Input {
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{0.5, float32(i)}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": "embeddinggemma", "data": data})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  "qwen2.5:3b",
				"choices": []map[string]any{
					{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": reply}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_Embed(t *testing.T) {
	srv := newCompatServer(t, "")
	p, err := NewProvider(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)
	defer p.Close()

	vec, err := p.Embedder().EmbedText(context.Background(), "Goblin Boss")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0}, vec)

	vecs, err := p.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.5, 1}, vecs[1])

	empty, err := p.Embedder().EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProvider_Complete(t *testing.T) {
	srv := newCompatServer(t, `{"npcs": [{"name": "Sir Aldric"}]}`)
	p, err := NewProvider(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	reply, err := p.Completer().Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"npcs": [{"name": "Sir Aldric"}]}`, reply)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	require.Error(t, err)
}

func TestToken(t *testing.T) {
	assert.Equal(t, "none", token(&ai.Config{}))
	assert.Equal(t, "sk-test", token(&ai.Config{APIKey: "sk-test"}))
}
