// Package cmd provides the CLI commands for DocLens.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doclens/doclens/internal/answer"
	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/config"
	"github.com/doclens/doclens/internal/embed"
	"github.com/doclens/doclens/internal/generate"
	"github.com/doclens/doclens/internal/index"
	"github.com/doclens/doclens/internal/logging"
	"github.com/doclens/doclens/internal/profiling"
	"github.com/doclens/doclens/internal/repair"
	"github.com/doclens/doclens/internal/search"
	"github.com/doclens/doclens/pkg/version"
)

// Persistent flags shared by every command.
var (
	noColor        bool
	debugMode      bool
	loggingCleanup func()

	profileCPU string
	profileMem string
	profiler   = profiling.NewProfiler()
	cpuCleanup func()
)

// NewRootCmd creates the root command for the doclens CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doclens",
		Short: "Per-document hybrid search with self-healing indexes",
		Long: `DocLens indexes documents page by page into per-document SQLite
stores and answers exact-phrase, semantic, and natural-language
queries against them.

Corrupt stores are detected and rebuilt (or quarantined) by the
repair command.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("doclens version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.doclens/")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")

	cmd.PersistentPreRunE = startRun
	cmd.PersistentPostRunE = stopRun

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newRepairCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// startRun sets up logging and starts profiling when requested. Logs
// route to the default log file so command output stays clean; debug
// mode raises the level and mirrors to stderr.
func startRun(_ *cobra.Command, _ []string) error {
	cfg := logging.Config{
		Level:    "info",
		FilePath: logging.DefaultLogPath(),
	}
	if debugMode {
		cfg.Level = "debug"
		cfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
	}
	return nil
}

// stopRun flushes profiles and the log file.
func stopRun(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig loads configuration for the current working directory.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return config.Load(wd)
}

// newEmbedder selects the embedding provider from config.
func newEmbedder(cfg *config.Config) embed.Embedder {
	var inner embed.Embedder
	switch strings.ToLower(cfg.Embeddings.Provider) {
	case "static":
		inner = embed.NewStaticEmbedder()
	default:
		inner = embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			Timeout:    cfg.Embeddings.Timeout,
		})
	}
	return embed.NewCachedEmbedder(inner, cfg.Embeddings.CacheSize)
}

// buildService assembles the full service stack from config.
func buildService(cfg *config.Config) *api.Service {
	embedder := newEmbedder(cfg)
	retriever := search.NewRetriever(embedder)
	pipeline := index.New(index.Config{
		Embedder:   embedder,
		OCRTrigger: cfg.Indexing.OCRTrigger,
	})
	generator := generate.NewOllamaGenerator(generate.Config{
		Host:    cfg.Generation.OllamaHost,
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout,
	})
	synthesizer := answer.New(retriever, generator)
	guardian := repair.New(repair.Config{})
	return api.NewService(pipeline, retriever, synthesizer, guardian)
}
