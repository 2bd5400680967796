package azure

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

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			var req struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			data := make([]map[string]any, len(req.Input))
			for i := range req.Input {
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var req struct {
				ResponseFormat struct {
					Type string `json:"type"`
				} `json:"response_format"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "json_object", req.ResponseFormat.Type)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"index": 0, "message": map[string]any{"role": "assistant", "content": `{"npcs": []}`}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func testConfig(endpoint string) *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderAzure),
		ai.WithAzure(endpoint, "2024-02-01"),
		ai.WithAPIKey("secret"),
		ai.WithEmbeddingModel("embed-deploy"),
		ai.WithCompletionModel("chat-deploy"),
	)
}

func TestProvider_EmbedTexts(t *testing.T) {
	srv, paths := newTestServer(t)
	p, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)
	defer p.Close()

	vecs, err := p.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 1}, vecs[1])
	require.NotEmpty(t, *paths)
	assert.Contains(t, (*paths)[0], "/openai/deployments/embed-deploy/embeddings")
}

func TestProvider_EmbedTextsEmpty(t *testing.T) {
	srv, paths := newTestServer(t)
	p, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)

	vecs, err := p.Embedder().EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Empty(t, *paths)
}

func TestProvider_Complete(t *testing.T) {
	srv, paths := newTestServer(t)
	p, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)

	reply, err := p.Completer().Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"npcs": []}`, reply)
	assert.Contains(t, (*paths)[0], "/openai/deployments/chat-deploy/chat/completions")
}

func TestNewProvider_RequiresCredentials(t *testing.T) {
	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderAzure))
	_, err := NewProvider(cfg)
	require.ErrorIs(t, err, ai.ErrMissingCredentials)
}
