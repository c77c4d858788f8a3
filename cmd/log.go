package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yohans-kasaw/taskloop/internal/eventlog"
)

var logCmd = &cobra.Command{
	Use:   "log <task-id>",
	Short: "Show the event log of a task",
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
		writeEntries(entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}

func writeEntries(entries []eventlog.Entry) {
	if resolveFormat() == "plain" {
		for _, e := range entries {
			fmt.Printf("%s\t%s\t%s\t%s\n",
				formatTimestamp(e.Timestamp), e.Kind, e.Subtype, escapeNewlines(e.Text))
		}
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft, WidthMax: 80},
	})
	tw.AppendHeader(table.Row{"Timestamp", "Kind", "Subtype", "Text"})
	for _, e := range entries {
		subtype := e.Subtype
		if e.Partial {
			subtype += " (partial)"
		}
		tw.AppendRow(table.Row{formatTimestamp(e.Timestamp), e.Kind, subtype, escapeNewlines(e.Text)})
	}
	if len(entries) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(empty log)", "-"})
	}
	tw.Render()
}

// resolveFormat picks the output format: the flag wins, otherwise a TTY
// gets a table and a pipe gets plain lines.
func resolveFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "plain"
}

func formatTimestamp(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.UnixMilli(ts).Format(time.RFC3339)
}

func escapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
