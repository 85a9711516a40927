package cmd

import (
	"fmt"

	"github.com/iksnae/llm-inspector/internal"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session on the backend",
	Long: `Delete a session on the backend. The session is only removed from the local
list and detail cache once the backend confirms the delete.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		ctx := contextOrBackground(cmd)

		syncer := internal.NewSessionSync(newBackend(), internal.WithoutDetailLoading())
		syncer.RefreshList(ctx)
		snapshot := syncer.Snapshot()
		if _, ok := snapshot.Session(sessionID); !ok {
			if snapshot.LastError != nil {
				return fmt.Errorf("failed to list sessions: %w", snapshot.LastError)
			}
			return fmt.Errorf("session not found: %s (use 'llm-inspector list' to see available sessions)", sessionID)
		}

		var deleted bool
		err := internal.ShowProgress(ctx, fmt.Sprintf("Deleting session %s", sessionID), func() error {
			deleted = syncer.DeleteSession(ctx, sessionID)
			if !deleted {
				return fmt.Errorf("backend did not confirm the delete")
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
		}

		remaining := len(syncer.Snapshot().Sessions)
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted session %s (%d remaining)", sessionID, remaining))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
