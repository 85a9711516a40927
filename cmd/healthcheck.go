package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/llm-inspector/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that llm-inspector can reach and read the backend",
	Long: `Check the health of llm-inspector by verifying:
  • Resolved configuration
  • Backend reachability and the session list
  • That the newest session detail normalizes
  • Detail cache directory access (when configured)

This command is useful for debugging connection and capture-format issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := contextOrBackground(cmd)

		fmt.Fprintln(out, sectionStyle.Render("🔍 LLM Inspector Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Resolving configuration..."))
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   API: %s\n", cfg.APIBase)
			fmt.Fprintf(out, "   Poll interval: %s\n", cfg.PollInterval)
			fmt.Fprintf(out, "   Request timeout: %s\n", cfg.RequestTimeout)
			fmt.Fprintf(out, "   Default window: %d\n", cfg.DefaultWindow)
			fmt.Fprintf(out, "   Token: %t\n", cfg.Token != "")
		}
		fmt.Fprintln(out)

		// Step 2: Session list
		fmt.Fprintln(out, infoStyle.Render("Step 2: Fetching session list..."))
		backend := newBackend()
		sessions, err := backend.ListSessions(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to reach backend:"), err)
			fmt.Fprintln(out)
			fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintf(out, "   • Backend at %s is not usable\n", cfg.APIBase)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d session(s)", len(sessions))))
		if healthcheckVerbose {
			for i, s := range sessions {
				if i == 5 {
					fmt.Fprintf(out, "   ... and %d more\n", len(sessions)-5)
					break
				}
				name := s.Name
				if name == "" {
					name = "Untitled"
				}
				fmt.Fprintf(out, "   [%d] %s (ID: %s)\n", i+1, name, s.ID)
			}
		}
		fmt.Fprintln(out)

		// Step 3: Newest session detail
		fmt.Fprintln(out, infoStyle.Render("Step 3: Loading newest session..."))
		exchanges := -1
		if len(sessions) == 0 {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No sessions to load"))
		} else {
			data, err := backend.FetchSession(ctx, sessions[0].ID)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to fetch session detail:"), err)
				return fmt.Errorf("health check failed: %w", err)
			}
			session := internal.NewNormalizer().NormalizeJSON(data)
			exchanges = len(session.Exchanges)
			if exchanges == 0 {
				fmt.Fprintln(out, warningStyle.Render("⚠️  Session "+sessions[0].ID+" has no recognizable exchanges"))
			} else {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Session %s normalized: %d exchange(s)", sessions[0].ID, exchanges)))
			}
			if healthcheckVerbose && exchanges > 0 {
				m := internal.Aggregate(session.Exchanges, nil)
				fmt.Fprintf(out, "   Avg latency: %.1f ms, tokens: %d, tool calls: %d\n", m.AverageLatencyMs, m.TotalTokens, m.TotalToolCalls)
			}
		}
		fmt.Fprintln(out)

		// Step 4: Cache
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking detail cache..."))
		if cfg.CacheDir == "" {
			fmt.Fprintln(out, infoStyle.Render("   Cache disabled (set cache_dir or --cache-dir to enable)"))
		} else if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Cache directory not writable:"), err)
		} else {
			index, err := internal.NewDetailCache(cfg.CacheDir).LoadIndex()
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, successStyle.Render("✅ Cache ready (empty)"))
			} else if err != nil {
				fmt.Fprintln(out, warningStyle.Render("⚠️  Cache index unreadable:"), err)
			} else {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Cache ready: %d session(s) cached", len(index.Sessions))))
			}
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if exchanges > 0 {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Sessions: %d found", len(sessions))))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Backend reachable but no exchanges found"))
			fmt.Fprintln(out, "   • The backend is working")
			fmt.Fprintln(out, "   • No captured exchanges are currently available")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckVerbose, "details", false, "Show detailed diagnostic information")
}
