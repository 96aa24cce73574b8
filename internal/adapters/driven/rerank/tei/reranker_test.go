package tei

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

func newTestReranker(t *testing.T, handler http.Handler) *Reranker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewReranker(Config{BaseURL: srv.URL})
}

func TestScore_RestoresInputOrder(t *testing.T) {
	r := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/rerank", req.URL.Path)

		var body rerankRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "magnesium sleep", body.Query)
		require.Len(t, body.Texts, 3)

		// The service returns results sorted by score.
		fmt.Fprint(w, `[{"index":2,"score":0.95},{"index":0,"score":0.4},{"index":1,"score":0.1}]`)
	}))

	scores, err := r.Score(context.Background(), "magnesium sleep",
		[]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.1, 0.95}, scores)
}

func TestScore_EmptyTexts(t *testing.T) {
	r := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not be sent")
	}))

	scores, err := r.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestScore_IndexOutOfRange(t *testing.T) {
	r := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"index":7,"score":0.5}]`)
	}))

	_, err := r.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
}

func TestScore_ServerError(t *testing.T) {
	r := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))

	_, err := r.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
}

func TestScore_Unreachable(t *testing.T) {
	r := NewReranker(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := r.Score(context.Background(), "q", []string{"a"})
	assert.ErrorIs(t, err, domain.ErrRerankerUnavailable)
}

func TestModelName(t *testing.T) {
	r := NewReranker(Config{})
	assert.Equal(t, DefaultModel, r.ModelName())
}
