package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yohans-kasaw/taskloop/internal/debuglog"
	"github.com/yohans-kasaw/taskloop/internal/rewind"
)

var (
	rewindTS   int64
	rewindEdit bool
)

var rewindCmd = &cobra.Command{
	Use:   "rewind <task-id>",
	Short: "Cut both task logs at a timestamp",
	Long: `rewind removes everything at or after the event-log entry with the given
timestamp from both the event log and the message history, together with any
derived artifacts (condensation summaries, truncation markers) that the cut
orphans. With --edit the cut entry itself is kept so it can be replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rewindTS == 0 {
			return fmt.Errorf("--ts is required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		mode := rewind.ModeDelete
		if rewindEdit {
			mode = rewind.ModeEdit
		}
		mgr := rewind.NewManager(s, s, debuglog.Stderr())
		if err := mgr.Rewind(cmd.Context(), args[0], rewindTS, mode); err != nil {
			if errors.Is(err, rewind.ErrCutPointNotFound) {
				return fmt.Errorf("no event log entry at timestamp %d (use `taskloop log %s` to list timestamps)", rewindTS, args[0])
			}
			return err
		}
		fmt.Printf("Rewound task %s to %d\n", args[0], rewindTS)
		return nil
	},
}

func init() {
	rewindCmd.Flags().Int64Var(&rewindTS, "ts", 0, "Cut timestamp (exact event-log match, milliseconds)")
	rewindCmd.Flags().BoolVar(&rewindEdit, "edit", false, "Keep the cut entry (it will be replaced)")
	rootCmd.AddCommand(rewindCmd)
}
