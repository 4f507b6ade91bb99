package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/config"
)

var (
	Version = "dev"
	Commit  = "none"
)

var (
	configPath string
	dbPath     string
	instanceID string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an HCL tuning file (see internal/config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "notecove.db", "Path to the sqlite catalog")
	rootCmd.PersistentFlags().StringVar(&instanceID, "instance", "notecove-store", "Instance id to attribute writes to")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(mcpServeCmd)
}

var rootCmd = &cobra.Command{
	Use:     "notecove-store",
	Short:   "Operate on a NoteCove Sync Directory's storage core",
	Version: fmt.Sprintf("%s (commit %s)", Version, Commit),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("notecove-store version %s (commit %s)\n", Version, Commit)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "notecove-store: config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func openCatalog() *catalog.Catalog {
	cat, err := catalog.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "notecove-store: catalog: %v\n", err)
		os.Exit(1)
	}
	return cat
}
