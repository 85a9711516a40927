package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/iksnae/llm-inspector/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	watchSession     string
	watchMetricsAddr string
	watchFor         time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow sessions as the backend records them",
	Long: `Poll the backend for sessions and follow the selected one.

The newest session is selected unless --session names another. Its detail is
reloaded whenever the backend reports new activity, and a one-line summary of
the trailing default_window exchanges is printed after every change. Failed
polls keep the last good list.

With --metrics-addr, poll and fetch counters are served in Prometheus format
at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if watchFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchFor)
			defer cancel()
		}

		registry := prometheus.NewRegistry()
		metrics := internal.NewSyncMetrics(registry)
		if watchMetricsAddr != "" {
			shutdown, err := serveMetrics(watchMetricsAddr, registry)
			if err != nil {
				return err
			}
			defer shutdown()
		}

		printer := newWatchPrinter(cmd.OutOrStdout(), cfg.DefaultWindow)
		syncer := internal.NewSessionSync(newBackend(),
			internal.WithPollInterval(cfg.PollInterval),
			internal.WithMetrics(metrics),
			internal.WithObserver(printer.Observe),
		)

		if watchSession != "" {
			syncer.SelectSession(ctx, watchSession)
		}
		internal.LogInfo("Watching %s every %s", cfg.APIBase, cfg.PollInterval)
		syncer.Run(ctx)
		return nil
	},
}

// serveMetrics exposes registry on addr until the returned function is called
func serveMetrics(addr string, registry *prometheus.Registry) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("failed to serve metrics on %s: %w", addr, err)
	case <-time.After(50 * time.Millisecond):
	}
	internal.LogInfo("Serving metrics on http://%s/metrics", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			internal.LogWarn("Failed to stop metrics server: %v", err)
		}
	}, nil
}

// watchPrinter prints a line whenever the observed state changes in a way a
// reader cares about
type watchPrinter struct {
	out        io.Writer
	windowSize int

	mu       sync.Mutex
	sessions []string
	current  *internal.NormalizedSession
	lastErr  error
}

func newWatchPrinter(out io.Writer, windowSize int) *watchPrinter {
	return &watchPrinter{out: out, windowSize: windowSize}
}

// Observe is registered as a SessionSync observer
func (p *watchPrinter) Observe(s internal.SyncState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, len(s.Sessions))
	for i, summary := range s.Sessions {
		ids[i] = summary.ID
	}
	if !equalStrings(ids, p.sessions) {
		p.sessions = ids
		fmt.Fprintln(p.out, headerStyle.Render(fmt.Sprintf("📋 %d session(s)", len(ids))))
	}

	if s.LastError != nil && (p.lastErr == nil || s.LastError.Error() != p.lastErr.Error()) {
		fmt.Fprintln(p.out, warningStyle.Render("⚠️  "+s.LastError.Error()))
	}
	p.lastErr = s.LastError

	if s.Current == p.current {
		return
	}
	p.current = s.Current
	if s.Current == nil {
		fmt.Fprintln(p.out, dateStyle.Render("No session selected"))
		return
	}
	fmt.Fprintln(p.out, summarizeSession(s.Current, s.Selection.ExchangeID, p.windowSize))
}

// summarizeSession renders a one-line view of the trailing window of session
func summarizeSession(session *internal.NormalizedSession, selected string, windowSize int) string {
	n := len(session.Exchanges)
	line := fmt.Sprintf("%s %s: %d exchange(s)", titleStyle.Render("●"), idStyle.Render(session.ID), n)
	w, ok, _ := resolveWindow("", n, windowSize)
	if !ok {
		return line
	}
	m := internal.Aggregate(session.Exchanges, &w)
	return line + fmt.Sprintf(" | window %d-%d: %.1f ms avg, %d tokens, %d tool call(s) | selected %s",
		w.Start, w.End, m.AverageLatencyMs, m.TotalTokens, m.TotalToolCalls, selected)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchSession, "session", "s", "", "Session to follow (default: the newest)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "Stop after this long (default: until interrupted)")
}
