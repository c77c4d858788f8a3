package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yohans-kasaw/taskloop/internal/config"
	"github.com/yohans-kasaw/taskloop/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "taskloop",
	Short: "Inspect and maintain agent task state",
	Long: `taskloop keeps an agent's two transcripts consistent: the event log the
user sees and the message history the model sees.

Examples:
  taskloop tasks                     # list stored tasks
  taskloop state <task-id>           # what is the agent doing right now
  taskloop log <task-id>             # show the event log
  taskloop rewind <task-id> --ts N   # cut both logs at a timestamp
  taskloop replay chunks.jsonl       # assemble tool calls from a chunk stream`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var outputFormat string

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format: table, plain or json (default: table on a TTY)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore builds the SQLite store from configuration.
func openStore() (*store.SQLiteStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	return s, nil
}
