package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/codec"
)

var inspectJSON bool

func init() {
	inspectCmd.PersistentFlags().BoolVar(&inspectJSON, "json", false, "Emit the field/record list as JSON instead of a table")
	inspectCmd.AddCommand(inspectLogCmd)
	inspectCmd.AddCommand(inspectSnapshotCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Byte-offset inspection of a .crdtlog or snapshot.yjs file",
}

var inspectLogCmd = &cobra.Command{
	Use:   "log <file>",
	Short: "Parse a .crdtlog file field-by-field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		result := codec.InspectLog(data)
		if inspectJSON {
			return printJSON(result)
		}
		printFields(result.Fields)
		fmt.Printf("\n%d record(s) parsed\n", len(result.Records))
		if result.Error != "" {
			fmt.Printf("error: %s\n", result.Error)
		}
		return nil
	},
}

var inspectSnapshotCmd = &cobra.Command{
	Use:   "snapshot <file>",
	Short: "Parse a snapshot.yjs file field-by-field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		result := codec.InspectSnapshot(data)
		if inspectJSON {
			return printJSON(result)
		}
		printFields(result.Fields)
		fmt.Printf("\ncomplete=%v vectorClockEntries=%d documentStateSize=%d\n",
			result.Complete, len(result.VectorClock), result.DocumentStateSize)
		if result.Error != "" {
			fmt.Printf("error: %s\n", result.Error)
		}
		return nil
	},
}

func printFields(fields []codec.Field) {
	for _, f := range fields {
		fmt.Printf("[%6d,%6d) %-12s %-10s %v\n", f.StartOffset, f.EndOffset, f.Type, f.Name, f.Value)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
