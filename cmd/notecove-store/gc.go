package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/imagegc"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

var gcRoot string

func init() {
	gcCmd.Flags().StringVar(&gcRoot, "root", ".", "Filesystem root the sd path is resolved against")
}

var gcCmd = &cobra.Command{
	Use:   "gc <sdId> <sdPath>",
	Short: "Run one image mark-and-sweep pass over a Sync Directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sdID, sdPath := args[0], args[1]
		cfg := loadConfig()

		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		notes, err := cat.ListNotesBySD(cmd.Context(), sdID)
		if err != nil {
			return err
		}
		noteIDs := make([]string, len(notes))
		for i, n := range notes {
			noteIDs[i] = n.ID
		}

		fs := storagefs.NewOS(gcRoot)
		loader := &crdt.FileLoader{FS: fs, SDPaths: map[string]string{sdID: sdPath}}
		collector := &imagegc.Collector{
			Catalog:         cat,
			Manager:         crdt.NewManager(loader),
			FS:              fs,
			Bus:             events.New(),
			ThumbnailRoot:   cfg.ThumbnailRoot,
			GracePeriodDays: cfg.GracePeriodDays,
			DryRun:          cfg.DryRun,
		}

		stats := collector.Run(cmd.Context(), sdID, sdPath, noteIDs)
		fmt.Printf("total=%d referenced=%d orphaned=%d deleted=%d skipped=%d thumbnailsDeleted=%d bytesReclaimed=%d\n",
			stats.Total, stats.Referenced, stats.Orphaned, stats.Deleted, stats.Skipped,
			stats.ThumbnailsDeleted, stats.BytesReclaimed)
		if len(stats.WouldDelete) > 0 {
			fmt.Println("would delete:")
			for _, id := range stats.WouldDelete {
				fmt.Println(" ", id)
			}
		}
		return stats.Err
	},
}
