// Command cuby is the entry point. It wires the driven adapters to the
// core services and hands the driving ports to the CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/darkcube-team/cuby/internal/adapters/driven/audio/pcm"
	configfile "github.com/darkcube-team/cuby/internal/adapters/driven/config/file"
	"github.com/darkcube-team/cuby/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/darkcube-team/cuby/internal/adapters/driven/embedding/openai"
	openairt "github.com/darkcube-team/cuby/internal/adapters/driven/realtime/openai"
	filestore "github.com/darkcube-team/cuby/internal/adapters/driven/storage/file"
	"github.com/darkcube-team/cuby/internal/adapters/driven/storage/sqlite"
	"github.com/darkcube-team/cuby/internal/adapters/driving/cli"
	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
	"github.com/darkcube-team/cuby/internal/core/ports/driving"
	"github.com/darkcube-team/cuby/internal/core/services"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := configDirFromArgs(os.Args[1:])

	configStore, err := configfile.NewConfigStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	cfg, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("opening knowledge store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	knowledge, err := services.NewKnowledgeEngine(store, embedder, cfg)
	if err != nil {
		return fmt.Errorf("creating knowledge engine: %w", err)
	}
	if err := knowledge.Start(context.Background()); err != nil {
		return fmt.Errorf("starting knowledge engine: %w", err)
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Knowledge:  knowledge,
		Config:     configStore,
		NewSession: sessionFactory(knowledge, cfg),
	})

	return cli.Execute()
}

// configDirFromArgs extracts the --config value ahead of cobra's flag
// parsing: services are wired before Execute runs.
func configDirFromArgs(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "--config=") {
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

// newStore selects the storage backend from the configuration. SQLite
// is the default; "json" selects the plain snapshot store.
func newStore(cfg domain.Config) (driven.KnowledgeStore, error) {
	if cfg.StoreBackend == "json" {
		path := ""
		if cfg.StorePath != "" {
			path = filepath.Join(cfg.StorePath, filestore.DefaultFileName)
		}
		return filestore.NewKnowledgeStore(path)
	}
	return sqlite.NewKnowledgeStore(cfg.StorePath)
}

// newEmbedder selects the embedding backend from the configured model
// name. OpenAI model names select the remote backend; everything else
// goes to the local Ollama daemon.
func newEmbedder(cfg domain.Config) (driven.EmbeddingService, error) {
	if strings.HasPrefix(cfg.EmbeddingModel, "text-embedding") {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		return svc, nil
	}
	return ollama.NewEmbeddingService(ollama.Config{Model: cfg.EmbeddingModel}), nil
}

// sessionFactory builds single-use realtime sessions. Audio endpoints
// are files or FIFOs fed by an external capture/playback tool; either
// may be unset.
func sessionFactory(knowledge driving.KnowledgeService, cfg domain.Config) func(ctx context.Context, opts cli.SessionOptions) (driving.SessionController, error) {
	return func(_ context.Context, opts cli.SessionOptions) (driving.SessionController, error) {
		channel, err := openairt.NewChannel(openairt.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.RealtimeModel,
		})
		if err != nil {
			return nil, fmt.Errorf("creating realtime channel: %w", err)
		}

		var source driven.AudioSource
		if opts.AudioIn != "" {
			f, err := os.Open(opts.AudioIn)
			if err != nil {
				return nil, fmt.Errorf("opening audio input: %w", err)
			}
			source = pcm.NewReaderSource(f, 0)
		}

		var sink driven.AudioSink
		if opts.AudioOut != "" {
			f, err := os.OpenFile(opts.AudioOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return nil, fmt.Errorf("opening audio output: %w", err)
			}
			sink = pcm.NewWriterSink(f)
		}

		return services.NewRealtimeSession(channel, knowledge, source, sink, cfg)
	}
}
