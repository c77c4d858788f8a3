package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yohans-kasaw/taskloop/internal/assembler"
	"github.com/yohans-kasaw/taskloop/internal/llm"
)

var replayCmd = &cobra.Command{
	Use:   "replay <chunks.jsonl>",
	Short: "Assemble tool calls from a recorded chunk stream",
	Long: `replay feeds a JSONL file of transport chunks through the tool-call
assembler and prints each finalized invocation. Useful for inspecting what a
recorded model turn actually asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		asm := assembler.New()
		defer asm.ClearAll()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var chunk llm.Chunk
			if err := json.Unmarshal([]byte(text), &chunk); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			switch chunk.Type {
			case llm.ChunkToolCallStart:
				asm.Start("replay", chunk.ToolCallID, chunk.ToolName)
			case llm.ChunkToolCallDelta:
				asm.Delta(chunk.ToolCallID, chunk.Fragment)
			case llm.ChunkToolCallFinal:
				inv, err := asm.Finalize(chunk.ToolCallID)
				if err != nil {
					fmt.Printf("%s: parse failure: %v\n", chunk.ToolCallID, err)
					continue
				}
				legacy := ""
				if inv.UsedLegacyFormat {
					legacy = " (legacy format)"
				}
				fmt.Printf("%s %s%s %s\n", inv.ID, inv.Name, legacy, string(inv.Arguments))
			}
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
