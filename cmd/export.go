package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/llm-inspector/internal"
	"github.com/iksnae/llm-inspector/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export normalized sessions to various formats (jsonl, md, yaml, json, sqlite).

Every listed session is exported unless --session-id names one. Each session is
written to session_<id>.<ext> in the output directory.
Use 'llm-inspector list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		ctx := contextOrBackground(cmd)
		backend := newBackend()

		ids, err := exportTargets(ctx, backend)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		normalizer := internal.NewNormalizer()
		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(ids), outputDir), func() error {
			for _, id := range ids {
				path, err := exportSession(ctx, backend, normalizer, exporter, id)
				if err != nil {
					internal.LogError("Failed to export session %s: %v", id, err)
					continue
				}
				internal.LogDebug("Wrote %s", path)
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		if exported < len(ids) {
			internal.PrintWarning(cmd.OutOrStdout(), fmt.Sprintf("%d session(s) failed to export", len(ids)-exported))
			if exported == 0 {
				return fmt.Errorf("no sessions exported")
			}
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		return nil
	},
}

// exportTargets returns the session ids to export
func exportTargets(ctx context.Context, backend internal.Backend) ([]string, error) {
	sessions, err := backend.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	if sessionID != "" {
		for _, s := range sessions {
			if s.ID == sessionID {
				return []string{sessionID}, nil
			}
		}
		return nil, fmt.Errorf("session not found: %s (use 'llm-inspector list' to see available sessions)", sessionID)
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func exportSession(ctx context.Context, backend internal.Backend, normalizer *internal.Normalizer, exporter export.Exporter, id string) (string, error) {
	data, err := backend.FetchSession(ctx, id)
	if err != nil {
		return "", err
	}
	session := normalizer.NormalizeJSON(data)
	session.ID = id

	path := filepath.Join(outputDir, fmt.Sprintf("session_%s.%s", internal.SanitizeID(id), exporter.Extension()))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}

	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json, sqlite)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
}
