package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"noteflow/internal/config"
	"noteflow/internal/services/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAPI struct {
	lastChat map[string]any
	fail     bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, 0, len(req.Input))
		// reversed to check that the client restores input order
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), float32(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test"})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		f.lastChat = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastChat)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"test","choices":[{"index":0,"message":{"role":"assistant","content":"  The sky is blue.\n"},"finish_reason":"stop"}]}`))
	})
	return mux
}

func newTestProvider(t *testing.T, api *fakeAPI) *Provider {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(config.Config{
		OpenAIAPIKey:       "test-key",
		OpenAIBaseURL:      srv.URL + "/v1/",
		EmbeddingModel:     "text-embedding-3-small",
		CompletionModel:    "gpt-4o",
		ProviderTimeoutSec: 5,
	}, silentLogger)
}

func TestProvider_Embed(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{})

	vecs, err := p.Embed(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{3, 1}, vecs[1])
	assert.Equal(t, []float32{2, 2}, vecs[2])

	vecs, err = p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestProvider_Complete(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(t, api)

	got, err := p.Complete(context.Background(), rag.Prompt{
		System:   "be brief",
		Context:  "The sky is blue.",
		Question: "What color is the sky?",
	})
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", got)

	msgs, ok := api.lastChat["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	system := msgs[0].(map[string]any)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "be brief", system["content"])
	assert.Equal(t, "Document Context:\nThe sky is blue.\n---\nQuestion:\nWhat color is the sky?", user["content"])
	assert.Equal(t, "gpt-4o", api.lastChat["model"])
}

func TestProvider_Errors(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{fail: true})

	_, err := p.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)

	_, err = p.Complete(context.Background(), rag.Prompt{Question: "q"})
	assert.Error(t, err)
}
