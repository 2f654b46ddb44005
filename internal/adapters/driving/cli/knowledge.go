package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/extract"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the local knowledge base",
	Long:  `Commands for ingesting, listing, and removing knowledge documents.`,
}

var knowledgeAddName string

var knowledgeAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Ingest a text file into the knowledge base",
	Long: `Reads a text file, chunks and embeds it, and stores it in the
knowledge base. Markdown and HTML are reduced to plain text first.
Adding a file with the same name replaces the previous version.`,
	Args: cobra.ExactArgs(1),
	RunE: runKnowledgeAdd,
}

var knowledgeRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a document from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeRemove,
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE:  runKnowledgeList,
}

func init() {
	knowledgeAddCmd.Flags().StringVar(&knowledgeAddName, "name", "", "display name (default: file name)")
	knowledgeCmd.AddCommand(knowledgeAddCmd)
	knowledgeCmd.AddCommand(knowledgeRemoveCmd)
	knowledgeCmd.AddCommand(knowledgeListCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func runKnowledgeAdd(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	name := knowledgeAddName
	if name == "" {
		name = filepath.Base(path)
	}
	text, format := extract.File(path, data)

	id, err := knowledgeService.Ingest(context.Background(), text, domain.DocumentMeta{
		Name:   name,
		Format: format,
	})
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", name, err)
	}

	cmd.Printf("Added %s (id %s)\n", name, id)
	if !knowledgeService.RetrievalEnabled() {
		cmd.Println("Warning: embedding backend unavailable; stored without vectors, retrieval disabled until it returns.")
	}
	return nil
}

func runKnowledgeRemove(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	id := args[0]
	if err := knowledgeService.Remove(context.Background(), id); err != nil {
		return fmt.Errorf("removing %s: %w", id, err)
	}

	cmd.Printf("Removed %s\n", id)
	return nil
}

func runKnowledgeList(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	docs, err := knowledgeService.Documents(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents in the knowledge base.")
		return nil
	}

	cmd.Printf("%-38s %-30s %-6s %8s  %s\n", "ID", "NAME", "FORMAT", "WORDS", "INGESTED")
	for _, d := range docs {
		cmd.Printf("%-38s %-30s %-6s %8d  %s\n",
			d.ID, d.Name, d.Format, d.WordCount, d.IngestedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
