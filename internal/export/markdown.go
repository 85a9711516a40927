package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/llm-inspector/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.NormalizedSession, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Session %s\n\n", session.ID)

	if session.Name != "" {
		_, _ = fmt.Fprintf(w, "**Name:** %s  \n", session.Name)
	}
	_, _ = fmt.Fprintf(w, "**Exchanges:** %d\n\n", len(session.Exchanges))

	m := internal.Aggregate(session.Exchanges, nil)
	_, _ = fmt.Fprintf(w, "## Metrics\n\n")
	_, _ = fmt.Fprintf(w, "| Metric | Value |\n|---|---|\n")
	_, _ = fmt.Fprintf(w, "| Requests | %d |\n", m.RequestCount)
	_, _ = fmt.Fprintf(w, "| Total latency | %.0f ms |\n", m.TotalLatencyMs)
	_, _ = fmt.Fprintf(w, "| Average latency | %.1f ms |\n", m.AverageLatencyMs)
	_, _ = fmt.Fprintf(w, "| Tokens (in/out) | %d / %d |\n", m.TotalInputTokens, m.TotalOutputTokens)
	_, _ = fmt.Fprintf(w, "| Tool calls | %d (%d unique) |\n\n", m.TotalToolCalls, m.UniqueToolCount)

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Exchanges\n\n")

	for i, ex := range session.Exchanges {
		_, _ = fmt.Fprintf(w, "### %d. %s\n\n", i+1, ex.ID)
		_, _ = fmt.Fprintf(w, "**Model:** %s  \n**Latency:** %.0f ms", ex.Model, ex.LatencyMs)
		if ex.Usage != nil {
			_, _ = fmt.Fprintf(w, "  \n**Tokens:** %d in / %d out", ex.Usage.InputTokens, ex.Usage.OutputTokens)
		}
		_, _ = fmt.Fprintf(w, "\n\n")

		if len(ex.Messages) > 0 {
			last := ex.Messages[len(ex.Messages)-1]
			_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", last.Role, escapeMarkdown(last.Content.PlainText()))
		}
		response := internal.BlockContent(ex.ResponseContent...).PlainText()
		_, _ = fmt.Fprintf(w, "**assistant:**\n\n%s\n\n", escapeMarkdown(response))

		events := internal.Correlate(ex.Messages, ex.ResponseContent, internal.ScanLatestTurn)
		if len(events) > 0 {
			_, _ = fmt.Fprintf(w, "**Tools:**\n\n")
			for _, ev := range events {
				_, _ = fmt.Fprintf(w, "- `%s` %s (%s)", ev.Kind, ev.Name, ev.Source)
				if ev.Summary != "" {
					_, _ = fmt.Fprintf(w, ": %s", escapeMarkdown(ev.Summary))
				}
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintln(w)
		}

		if i < len(session.Exchanges)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
