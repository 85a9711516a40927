package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/llm-inspector/internal"
	"github.com/spf13/cobra"
)

var (
	showLimit    int
	showWindow   string
	showTools    bool
	showExchange string
	showSeries   bool
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// previewLength bounds message text shown per exchange
const previewLength = 400

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show exchanges and metrics for a session",
	Long: `Display the exchanges of a session together with latency, token and tool
metrics for a range of them.

The range defaults to the trailing default_window exchanges. Use --window to pick
another inclusive range, e.g. --window 10:19, --window :9 or --window 40:.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		ctx := contextOrBackground(cmd)

		syncer := internal.NewSessionSync(newBackend())
		var session *internal.NormalizedSession
		err := internal.ShowProgress(ctx, fmt.Sprintf("Loading session %s", sessionID), func() error {
			session = syncer.SelectSession(ctx, sessionID)
			if session != nil {
				return nil
			}
			if err := syncer.Snapshot().LastError; err != nil {
				return err
			}
			return fmt.Errorf("session %s is not available", sessionID)
		})
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		if showExchange != "" && !syncer.SelectExchange(showExchange) {
			return fmt.Errorf("exchange not found in session %s: %s", sessionID, showExchange)
		}
		selected := syncer.Snapshot().Selection.ExchangeID

		window, ok, err := resolveWindow(showWindow, len(session.Exchanges), cfg.DefaultWindow)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, session, window, ok)
		if !ok {
			fmt.Fprintln(out, sessionMetaStyle.Render("(no exchanges)"))
			return nil
		}

		displayMetrics(out, internal.Aggregate(session.Exchanges, &window))

		shown := session.Exchanges[window.Start : window.End+1]
		total := len(shown)
		if showLimit > 0 && showLimit < total {
			shown = shown[:showLimit]
		}
		for i, ex := range shown {
			displayExchange(out, window.Start+i, ex, ex.ID == selected)
		}
		if showLimit > 0 && showLimit < total {
			fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more exchange(s))", total-showLimit)))
			fmt.Fprintln(out)
		}

		if showSeries {
			displaySeries(out, internal.Series(session.Exchanges[window.Start:window.End+1]), window.Start)
		}
		if showTools {
			displayTimeline(out, internal.BuildTimeline(session.Exchanges, internal.ScanLatestTurn), window)
		}
		return nil
	},
}

// resolveWindow picks the exchange range to show. Without a range it is the
// default trailing window; ok is false for a session without exchanges.
func resolveWindow(spec string, n, defaultSize int) (w internal.Window, ok bool, err error) {
	state := internal.NewRangeState(0)
	state.DefaultSize = defaultSize
	state = internal.ReduceRange(state, internal.ResizeEvent{N: n})
	if !state.Valid {
		return internal.Window{}, false, nil
	}
	if spec == "" {
		return state.Window, true, nil
	}

	w, err = parseWindow(spec, n)
	if err != nil {
		return internal.Window{}, false, err
	}
	return w, true, nil
}

// parseWindow parses "start:end" (inclusive, either side optional) and clamps
// it to [0, n-1]
func parseWindow(spec string, n int) (internal.Window, error) {
	startText, endText, found := strings.Cut(spec, ":")
	if !found {
		return internal.Window{}, fmt.Errorf("invalid --window %q (expected start:end)", spec)
	}

	w := internal.Window{Start: 0, End: n - 1}
	if startText != "" {
		v, err := strconv.Atoi(strings.TrimSpace(startText))
		if err != nil || v < 0 {
			return internal.Window{}, fmt.Errorf("invalid --window start %q", startText)
		}
		w.Start = v
	}
	if endText != "" {
		v, err := strconv.Atoi(strings.TrimSpace(endText))
		if err != nil || v < 0 {
			return internal.Window{}, fmt.Errorf("invalid --window end %q", endText)
		}
		w.End = v
	}
	if w.End > n-1 {
		w.End = n - 1
	}
	if w.Start > w.End {
		return internal.Window{}, fmt.Errorf("--window %s selects no exchanges (session has %d)", spec, n)
	}
	return w, nil
}

func displaySessionHeader(out io.Writer, session *internal.NormalizedSession, window internal.Window, ok bool) {
	if session == nil {
		return
	}
	name := session.Name
	if name == "" {
		name = session.ID
	}
	fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", name)))

	metaParts := []string{
		fmt.Sprintf("ID: %s", session.ID),
		fmt.Sprintf("Exchanges: %d", len(session.Exchanges)),
	}
	if ok {
		metaParts = append(metaParts, fmt.Sprintf("Window: %d-%d", window.Start, window.End))
	}
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
}

func displayMetrics(out io.Writer, m internal.Metrics) {
	fmt.Fprintln(out, titleStyle.Render("Metrics"))
	fmt.Fprintf(out, "  Requests:     %s\n", countStyle.Render(strconv.Itoa(m.RequestCount)))
	fmt.Fprintf(out, "  Latency:      %.0f ms total, %.1f ms avg\n", m.TotalLatencyMs, m.AverageLatencyMs)
	fmt.Fprintf(out, "  Tokens:       %d total (%d in / %d out), %.1f avg\n",
		m.TotalTokens, m.TotalInputTokens, m.TotalOutputTokens, m.AverageTokens)
	fmt.Fprintf(out, "  Tool calls:   %d (%d unique), %.2f per request\n",
		m.TotalToolCalls, m.UniqueToolCount, m.AverageToolCallsPerRequest)
	fmt.Fprintln(out)
}

func displayExchange(out io.Writer, index int, ex internal.NormalizedExchange, selected bool) {
	header := fmt.Sprintf("[%d] %s", index, ex.ID)
	if selected {
		header = selectedStyle.Render("▸ " + header)
	} else {
		header = titleStyle.Render(header)
	}

	var meta []string
	if ex.Model != "" {
		meta = append(meta, ex.Model)
	}
	meta = append(meta, fmt.Sprintf("%.0f ms", ex.LatencyMs))
	if ex.Usage != nil {
		meta = append(meta, fmt.Sprintf("%d tokens", ex.Usage.Total()))
	}
	if ex.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, ex.Timestamp); err == nil {
			meta = append(meta, t.Format("15:04:05"))
		} else {
			meta = append(meta, ex.Timestamp)
		}
	}
	fmt.Fprintln(out, header+" "+timestampStyle.Render(strings.Join(meta, " • ")))

	if n := len(ex.Messages); n > 0 {
		last := ex.Messages[n-1]
		style := userMessageStyle
		if last.Role == internal.RoleAssistant {
			style = assistantMessageStyle
		}
		fmt.Fprintln(out, style.Render(string(last.Role)))
		displayText(out, last.Content.PlainText())
	}

	fmt.Fprintln(out, assistantMessageStyle.Render("response"))
	displayText(out, internal.BlockContent(ex.ResponseContent...).PlainText())
	fmt.Fprintln(out)
}

func displayText(out io.Writer, text string) {
	content := strings.TrimSpace(text)
	if content == "" {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(no text)"))
		return
	}
	content = wrapText(internal.Truncate(content, previewLength), 80)
	fmt.Fprintln(out, messageContentStyle.Render(content))
}

// displaySeries prints one row per exchange; offset maps series indexes back to
// session indexes
func displaySeries(out io.Writer, points []internal.SeriesPoint, offset int) {
	fmt.Fprintln(out, titleStyle.Render("Per-exchange series"))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  #\tExchange\tLatency ms\tIn\tOut\tTools\t")
	for _, p := range points {
		_, _ = fmt.Fprintf(w, "  %d\t%s\t%.0f\t%d\t%d\t%d\t\n",
			offset+p.Index, p.ExchangeID, p.LatencyMs, p.InputTokens, p.OutputTokens, p.ToolCalls)
	}
	_ = w.Flush()
	fmt.Fprintln(out)
}

func displayTimeline(out io.Writer, timeline *internal.Timeline, window internal.Window) {
	fmt.Fprintln(out, titleStyle.Render("Tool timeline"))
	events, ok := timeline.WindowForExchanges(window)
	if !ok {
		fmt.Fprintln(out, sessionMetaStyle.Render("  (no tool events in window)"))
		return
	}
	for _, ev := range timeline.Events[events.Start : events.End+1] {
		category, _ := timeline.Category(ev.Name)
		line := fmt.Sprintf("  #%d [ex %d] %-6s %s (%s, lane %d)", ev.SequenceIndex, ev.ExchangeIndex, ev.Kind, ev.Name, ev.Source, category)
		if ev.IsError {
			line += " " + errorStyle.Render("error")
		}
		fmt.Fprintln(out, line)
		if ev.Summary != "" {
			fmt.Fprintln(out, timestampStyle.Render("      "+ev.Summary))
		}
	}
	fmt.Fprintln(out)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Limit number of exchanges to show")
	showCmd.Flags().StringVarP(&showWindow, "window", "w", "", "Inclusive exchange range start:end")
	showCmd.Flags().BoolVar(&showTools, "tools", false, "Show the tool call timeline for the window")
	showCmd.Flags().BoolVar(&showSeries, "series", false, "Show per-exchange latency, token and tool counts for the window")
	showCmd.Flags().StringVar(&showExchange, "exchange", "", "Highlight an exchange by id (default: the latest)")
}
