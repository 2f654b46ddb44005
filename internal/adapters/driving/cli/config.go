package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg, err := configStore.Load()
	if err != nil {
		return err
	}

	cmd.Printf("config file:      %s\n", configStore.Path())
	cmd.Printf("embedding model:  %s\n", cfg.EmbeddingModel)
	cmd.Printf("window size:      %d words\n", cfg.WindowSize)
	cmd.Printf("overlap:          %d words\n", cfg.Overlap)
	cmd.Printf("top k:            %d\n", cfg.TopK)
	cmd.Printf("retrieval budget: %s\n", cfg.RetrievalBudget)
	cmd.Printf("realtime model:   %s\n", cfg.RealtimeModel)
	cmd.Printf("voice:            %s\n", cfg.Voice)
	cmd.Printf("vad threshold:    %.2f\n", cfg.VADThreshold)
	cmd.Printf("vad silence:      %s\n", cfg.VADSilence)
	cmd.Printf("store backend:    %s\n", cfg.StoreBackend)
	if cfg.StorePath != "" {
		cmd.Printf("store path:       %s\n", cfg.StorePath)
	}
	cmd.Printf("api key:          %s\n", maskKey(cfg.APIKey))
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
