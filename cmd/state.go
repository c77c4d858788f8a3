package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
)

var stateCmd = &cobra.Command{
	Use:   "state <task-id>",
	Short: "Show the derived agent state for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.ReadEvents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		snap := eventlog.Detect(entries)

		if outputFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		fmt.Printf("State:       %s\n", snap.State)
		fmt.Printf("Action:      %s\n", snap.RequiredAction)
		if snap.DirectiveSubtype != "" {
			fmt.Printf("Directive:   %s\n", snap.DirectiveSubtype)
		}
		fmt.Printf("Description: %s\n", snap.Description)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
