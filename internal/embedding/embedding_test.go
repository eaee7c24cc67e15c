package embedding

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/comchat/internal/config"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	e, err := NewOpenAIEmbedder(&config.EmbeddingEnvConfig{
		OpenAIAPIKey:   "sk-test",
		EmbeddingURL:   ts.URL + "/",
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)
	return e
}

func TestOpenAIEmbedder(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req embeddingRequest
		require.NoError(t, sonic.Unmarshal(body, &req))
		assert.Equal(t, "hello", req.Input)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	})

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedderErrors(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	empty := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	_, err = empty.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	_, err = NewOpenAIEmbedder(&config.EmbeddingEnvConfig{})
	assert.Error(t, err)
}

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float64{float64(len(text))}, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)

	for range 3 {
		vec, err := cached.Embed(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, []float64{3}, vec)
	}
	assert.EqualValues(t, 1, inner.calls.Load())

	_, _ = cached.Embed(context.Background(), "de")
	_, _ = cached.Embed(context.Background(), "fghi")
	assert.Equal(t, 2, cached.Len())

	_, _ = cached.Embed(context.Background(), "abc")
	assert.EqualValues(t, 4, inner.calls.Load())
}

func TestCachedEmbedderDoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	cached, err := NewCachedEmbedder(inner, 0)
	require.NoError(t, err)

	for range 2 {
		_, err := cached.Embed(context.Background(), "abc")
		assert.Error(t, err)
	}
	assert.EqualValues(t, 2, inner.calls.Load())
	assert.Equal(t, 0, cached.Len())
}
