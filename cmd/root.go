package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/iksnae/llm-inspector/internal"
	"github.com/iksnae/llm-inspector/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	configPath   string
	apiBase      string
	apiToken     string
	pollInterval time.Duration
	cacheDir     string
	version      string = "dev"
	commit       string = "unknown"
	date         string = "unknown"
)

// cfg is resolved before every subcommand runs
var cfg = config.Default()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "llm-inspector",
	Short: "Inspect captured LLM request/response exchanges",
	Long: `A console for browsing sessions of captured LLM exchanges.

llm-inspector talks to an exchange-logging backend, normalizes Anthropic and
OpenAI style captures into one shape, pairs tool calls with their results and
summarizes latency, token and tool usage over any range of exchanges.

Quick Start:
  llm-inspector list                       # List sessions, newest first
  llm-inspector show <session-id>          # Exchanges and metrics of one session
  llm-inspector watch                      # Follow the backend as sessions change
  llm-inspector export --format md         # Export sessions as Markdown

Settings are read from ~/.llm-inspector.yaml, LLM_INSPECTOR_* environment
variables and the flags below, in increasing priority.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := config.Load(configPath, config.Overrides{
			APIBase:      apiBase,
			Token:        apiToken,
			PollInterval: pollInterval,
			CacheDir:     cacheDir,
		})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		internal.LogDebug("Using API %s (poll %s, window %d)", cfg.APIBase, cfg.PollInterval, cfg.DefaultWindow)
		return nil
	},
}

// newBackend builds the API client, wrapped in the detail cache when one is configured
func newBackend() internal.Backend {
	client := internal.NewClient(cfg.APIBase, cfg.Token, cfg.RequestTimeout)
	if cfg.CacheDir == "" {
		return client
	}
	internal.LogDebug("Caching session details in %s", cfg.CacheDir)
	return internal.NewCachedBackend(client, internal.NewDetailCache(cfg.CacheDir))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.llm-inspector.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "Backend API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Bearer token sent to the backend")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "interval", 0, "Session list poll interval")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Cache session details in this directory")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
