package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query the knowledge base",
	Long: `Runs a similarity query against the knowledge base and prints the
most relevant chunks in descending score order.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top", "k", 0, "number of chunks to return (0 = configured default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	results, err := knowledgeService.Query(context.Background(), args[0], queryTopK)
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return errors.New("retrieval is disabled: embedding backend unavailable")
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryText(cmd, results)
}

type queryResult struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Position     int     `json:"position"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

func outputQueryJSON(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	out := make([]queryResult, 0, len(results))
	for _, r := range results {
		out = append(out, queryResult{
			DocumentID:   r.Document.ID,
			DocumentName: r.Document.Name,
			Position:     r.Chunk.Position,
			Score:        r.Score,
			Content:      r.Chunk.Content,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	if len(results) == 0 {
		cmd.Println("No matching chunks found.")
		return nil
	}

	for i, r := range results {
		cmd.Printf("%d. %s (chunk %d, score %.4f)\n", i+1, r.Document.Name, r.Chunk.Position, r.Score)
		cmd.Printf("   %s\n", r.Chunk.Content)
		if i < len(results)-1 {
			cmd.Println()
		}
	}
	return nil
}
