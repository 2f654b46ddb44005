// Package cli implements the command-line interface. Commands depend on
// driving ports only; the composition root injects the wired services
// through SetServices before Execute.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/darkcube-team/cuby/internal/core/ports/driven"
	"github.com/darkcube-team/cuby/internal/core/ports/driving"
	"github.com/darkcube-team/cuby/internal/logger"
)

// version is set by the composition root (via SetVersion) from build info.
var version = "dev"

var (
	knowledgeService driving.KnowledgeService
	configStore      driven.ConfigStore

	// newSession constructs a fresh single-use session controller.
	// Sessions cannot be prebuilt: each talk invocation needs its own.
	newSession func(ctx context.Context, opts SessionOptions) (driving.SessionController, error)
)

// SessionOptions carries per-invocation session settings from the
// command line to the composition root's session factory.
type SessionOptions struct {
	// AudioIn is a PCM16 file or FIFO to capture from; empty disables
	// audio capture.
	AudioIn string

	// AudioOut is a PCM16 file or FIFO to play back to; empty discards
	// assistant audio.
	AudioOut string
}

var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "cuby",
	Short: "Voice assistant grounded in your local documents",
	Long: `Cuby is a realtime voice assistant grounded in a local knowledge base.

Ingest documents into the knowledge base, then start a talk session:
the assistant retrieves the most relevant passages for each utterance
and answers with that context injected.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// The composition root reads this flag from os.Args before Execute,
	// since services are wired ahead of cobra's flag parsing.
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.cuby)")
}

// Services bundles the wired dependencies the commands need.
type Services struct {
	Knowledge  driving.KnowledgeService
	Config     driven.ConfigStore
	NewSession func(ctx context.Context, opts SessionOptions) (driving.SessionController, error)
}

// SetServices injects the wired services. Must be called before Execute.
func SetServices(s Services) {
	knowledgeService = s.Knowledge
	configStore = s.Config
	newSession = s.NewSession
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
