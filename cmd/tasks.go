package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List stored tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		tasks, err := s.ListTasks(cmd.Context())
		if err != nil {
			return err
		}

		if resolveFormat() == "plain" {
			for _, t := range tasks {
				fmt.Printf("%s\t%d\t%d\t%s\n", t.ID, t.Events, t.Messages, t.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Task", "Events", "Messages", "Updated"})
		for _, t := range tasks {
			tw.AppendRow(table.Row{t.ID, t.Events, t.Messages, t.UpdatedAt.Format(time.RFC3339)})
		}
		if len(tasks) == 0 {
			tw.AppendRow(table.Row{"(no tasks)", 0, 0, "-"})
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
