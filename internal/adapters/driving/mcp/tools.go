package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"the research question or topic to retrieve evidence for"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
	ExpandQuery bool   `json:"expand_query,omitempty" jsonschema:"expand the query with domain synonyms before searching"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Partial bool                 `json:"partial,omitempty"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	Year       string   `json:"year,omitempty"`
	Journal    string   `json:"journal,omitempty"`
	Section    string   `json:"section"`
	IsTable    bool     `json:"is_table,omitempty"`
	Score      float64  `json:"score"`
	Text       string   `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_literature",
		Description: "Retrieve the most relevant passages from the indexed scientific literature corpus",
	}, s.handleSearch)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.RetrievalOptions{
		Stage2TopN:  input.Limit,
		ExpandQuery: input.ExpandQuery,
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil && !domain.IsRetrievalTimeout(err) {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
		// A timeout still surfaces whatever was retrieved in budget.
		Partial: err != nil,
	}

	for i := range results {
		chunk := results[i].Chunk
		output.Results[i] = SearchResultOutput{
			DocumentID: chunk.DocumentID,
			Title:      chunk.Title,
			Authors:    chunk.Authors,
			Year:       chunk.Year,
			Journal:    chunk.Journal,
			Section:    chunk.SectionLabel,
			IsTable:    chunk.IsTable,
			Score:      results[i].Score,
			Text:       chunk.Text,
		}
	}

	return nil, output, nil
}
