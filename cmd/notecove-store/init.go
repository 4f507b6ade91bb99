package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/sdstore"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

var sdName string

func init() {
	initCmd.Flags().StringVar(&sdName, "name", "", "Human-readable name for the new storage dir")
}

var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Initialize the SD layout, stamp its marker, and register it in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		cfg := loadConfig()

		fs := storagefs.NewOS(path)
		if err := sdstore.Initialize(fs, "."); err != nil {
			return fmt.Errorf("initialize sd: %w", err)
		}

		decision, err := sdstore.CheckRegister(fs, ".", cfg.IsDevBuild, cfg.SkipMarker)
		if err != nil {
			return fmt.Errorf("check marker: %w", err)
		}
		if !decision.Allow {
			return fmt.Errorf("refusing to register %s: %s", path, decision.Reason)
		}

		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		id := uuid.NewString()
		name := sdName
		if name == "" {
			name = path
		}
		if err := cat.UpsertStorageDir(cmd.Context(), api.StorageDir{ID: id, Name: name, Path: path, IsActive: true}); err != nil {
			return err
		}

		fmt.Printf("registered sd %s (%s) at %s\n", id, name, path)
		return nil
	},
}
