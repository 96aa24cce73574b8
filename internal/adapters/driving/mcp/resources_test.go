package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestRunsResource(t *testing.T) {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeRunLister{runs: []domain.RunSummary{{
		Kind:       "fetch",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Counts:     map[string]int{"new": 12},
	}}}

	srv, err := NewServer(&Ports{Retrieval: &fakeRetrieval{}, Runs: lister})
	require.NoError(t, err)

	result, err := srv.handleRunsResource(context.Background(), makeReadResourceRequest("biblio://runs"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)

	assert.Equal(t, "biblio://runs", result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var runs []domain.RunSummary
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "fetch", runs[0].Kind)
	assert.Equal(t, 12, runs[0].Counts["new"])
}

func TestRunsResource_NoLister(t *testing.T) {
	srv, err := NewServer(&Ports{Retrieval: &fakeRetrieval{}})
	require.NoError(t, err)

	result, err := srv.handleRunsResource(context.Background(), makeReadResourceRequest("biblio://runs"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.JSONEq(t, "[]", result.Contents[0].Text)
}
