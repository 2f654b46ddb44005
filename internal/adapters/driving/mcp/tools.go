package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// QueryInput is the input schema for the knowledge_query tool.
type QueryInput struct {
	Text string `json:"text" jsonschema:"the text to find related knowledge for"`
	K    int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// QueryOutput is the output schema for the knowledge_query tool.
type QueryOutput struct {
	Results []QueryResultOutput `json:"results"`
	Count   int                 `json:"count"`
}

// QueryResultOutput represents a single retrieved chunk.
type QueryResultOutput struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Position     int     `json:"position"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// ListInput is the input schema for the knowledge_list tool.
type ListInput struct{}

// ListOutput is the output schema for the knowledge_list tool.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents one ingested document.
type DocumentOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Format     string `json:"format"`
	WordCount  int    `json:"word_count"`
	IngestedAt string `json:"ingested_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.inner, &mcp.Tool{
		Name:        "knowledge_query",
		Description: "Find the chunks of the local knowledge store most similar to a text",
	}, s.handleQuery)

	mcp.AddTool(s.inner, &mcp.Tool{
		Name:        "knowledge_list",
		Description: "List the documents in the local knowledge store",
	}, s.handleList)
}

// handleQuery handles the knowledge_query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	results, err := s.ports.Knowledge.Query(ctx, input.Text, input.K)
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return nil, QueryOutput{}, errors.New("knowledge retrieval is unavailable (embedding backend unreachable)")
		}
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Results: make([]QueryResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = QueryResultOutput{
			DocumentID:   results[i].Document.ID,
			DocumentName: results[i].Document.Name,
			Position:     results[i].Chunk.Position,
			Score:        results[i].Score,
			Content:      results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleList handles the knowledge_list tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.Knowledge.Documents(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i, d := range docs {
		output.Documents[i] = DocumentOutput{
			ID:         d.ID,
			Name:       d.Name,
			Format:     d.Format,
			WordCount:  d.WordCount,
			IngestedAt: d.IngestedAt.Format("2006-01-02 15:04:05"),
		}
	}

	return nil, output, nil
}
