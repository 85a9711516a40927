package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/llm-inspector/internal"
	"github.com/spf13/cobra"
)

var (
	listClearCache bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sessions",
	Long:  `List the sessions known to the backend, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listClearCache {
			clearDetailCache()
		}

		ctx := contextOrBackground(cmd)
		backend := newBackend()
		var sessions []internal.SessionSummary
		err := internal.ShowProgress(ctx, "Loading sessions", func() error {
			var listErr error
			sessions, listErr = backend.ListSessions(ctx)
			return listErr
		})
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

func clearDetailCache() {
	if cfg.CacheDir == "" {
		internal.LogWarn("No cache directory configured; nothing to clear")
		return
	}
	if err := internal.NewDetailCache(cfg.CacheDir).ClearCache(); err != nil {
		internal.LogWarn("Failed to clear cache: %v", err)
	} else {
		internal.LogInfo("Cache cleared")
	}
}

func displaySessions(out io.Writer, sessions []internal.SessionSummary, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Created")+"\t"+titleStyle.Render("Last activity")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, session := range sessions {
		name := session.Name
		if name == "" {
			name = "Untitled"
		}
		name = internal.Truncate(name, 50)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(session.ID),
			nameStyle.Render(name),
			dateStyle.Render(formatRelative(session.GetCreatedAt(), now)),
			dateStyle.Render(formatRelative(session.GetLastActivityAt(), now)))
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: run ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render("llm-inspector show "+sessions[0].ID)+
		idStyle.Render(" to open the newest session"))
}

// formatRelative renders t compactly relative to now
func formatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour && t.Day() == now.Day():
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the detail cache before running")
}
