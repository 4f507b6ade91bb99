package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/move"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

func init() {
	moveCmd.AddCommand(moveInitCmd)
	moveCmd.AddCommand(moveRunCmd)
	moveCmd.AddCommand(moveRecoverCmd)
	moveCmd.AddCommand(moveSweepCmd)
}

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Initiate, execute, and recover cross-SD note moves",
}

func newEngine(cat *catalog.Catalog) *move.Engine {
	return &move.Engine{
		Catalog:    cat,
		OpenFS:     func(root string) *storagefs.Filesystem { return storagefs.NewOS(root) },
		Bus:        events.New(),
		InstanceID: instanceID,
	}
}

var moveInitCmd = &cobra.Command{
	Use:   "init <noteId> <sourceSdId> <targetSdId> <targetFolderId>",
	Short: "Create a move record in the initiated state",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		eng := newEngine(cat)
		id, err := eng.InitiateMove(cmd.Context(), args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var moveRunCmd = &cobra.Command{
	Use:   "run <moveId>",
	Short: "Execute a move's happy-path sequence to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		eng := newEngine(cat)
		if err := eng.ExecuteMove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("completed")
		return nil
	},
}

var moveRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Resume every non-terminal move this instance initiated",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		eng := newEngine(cat)
		stale, err := eng.RecoverIncompleteMoves(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range stale {
			fmt.Printf("stale move %s owned by %s, state=%s, last modified %s\n",
				s.MoveID, s.InitiatedBy, s.State, s.LastModified)
		}
		return nil
	},
}

var moveSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete terminal move records older than the retention window (watermarked, cheap to call often)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		eng := newEngine(cat)
		deleted, err := eng.SweepTerminalRecords(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d terminal move record(s)\n", deleted)
		return nil
	},
}
