package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen2.5vl:72b"},{"model":"mistral:7b-instruct"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", time.Minute)
	names, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen2.5vl:72b", "mistral:7b-instruct"}, names)
}

func TestClientModelsUnavailable(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewClient(url, time.Second).Models(context.Background())
		require.ErrorIs(t, err, ErrBackendUnavailable)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Second).Models(context.Background())
		require.ErrorIs(t, err, ErrBackendUnavailable)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestClientGenerate(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: `{"action_items":[]}`})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Minute)
	out, err := c.Generate(context.Background(), GenerateRequest{
		Model:       "qwen2.5vl:72b",
		Prompt:      "hello",
		Images:      []string{"aW1n"},
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action_items":[]}`, out)

	assert.Equal(t, "qwen2.5vl:72b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, 0.3, got.Options.Temperature)
	assert.Equal(t, 2000, got.Options.NumPredict)
	assert.Equal(t, []string{"aW1n"}, got.Images)
}

func TestClientGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model exploded", http.StatusInternalServerError)
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"error field", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()
			_, err := NewClient(server.URL, time.Second).Generate(context.Background(), GenerateRequest{Model: "m"})
			assert.Error(t, err)
		})
	}
}

func TestSelectModel(t *testing.T) {
	primary := ModelSpec{Name: "qwen2.5vl:72b", Vision: true}
	fallback := ModelSpec{Name: "mistral", Vision: false}

	spec, ok := selectModel([]string{"mistral:latest", "qwen2.5vl:72b"}, primary, fallback)
	require.True(t, ok)
	assert.Equal(t, primary, spec)

	spec, ok = selectModel([]string{"mistral:latest", "qwen2.5vl:7b"}, primary, fallback)
	require.True(t, ok)
	assert.Equal(t, fallback, spec, "tagged primary must match exactly; untagged fallback matches any tag")

	_, ok = selectModel([]string{"llama3"}, primary, fallback)
	assert.False(t, ok)

	_, ok = selectModel(nil, primary, ModelSpec{})
	assert.False(t, ok)
}
