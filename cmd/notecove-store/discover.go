package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/discovery"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

var discoverRoot string

func init() {
	discoverCmd.Flags().StringVar(&discoverRoot, "root", ".", "Filesystem root the sd path is resolved against")
}

var discoverCmd = &cobra.Command{
	Use:   "discover <sdId> <sdPath>",
	Short: "Run one note-discovery pass over a Sync Directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sdID, sdPath := args[0], args[1]

		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		fs := storagefs.NewOS(discoverRoot)
		loader := &crdt.FileLoader{FS: fs, SDPaths: map[string]string{sdID: sdPath}}
		rec := &discovery.Reconciler{
			FS:      fs,
			Manager: crdt.NewManager(loader),
			Catalog: cat,
			Bus:     events.New(),
		}

		imported, err := rec.Run(cmd.Context(), sdID, sdPath)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d note(s)\n", len(imported))
		for _, id := range imported {
			fmt.Println(" ", id)
		}
		return nil
	},
}
