package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for corpus resources.
const uriScheme = "biblio://"

// runsResourceLimit bounds how much run history one read returns.
const runsResourceLimit = 50

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "runs",
		Name:        "runs",
		Description: "Recent fetch, process and index pipeline runs",
		MIMEType:    "application/json",
	}, s.handleRunsResource)
}

// handleRunsResource returns recent pipeline run summaries.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	text := "[]"

	if s.ports.Runs != nil {
		runs, err := s.ports.Runs.ListRuns(ctx, runsResourceLimit)
		if err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return nil, err
		}
		text = string(data)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		}},
	}, nil
}
