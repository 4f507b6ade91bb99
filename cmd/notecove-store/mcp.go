package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/codec"
	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/imagegc"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

// mcpServeCmd exposes three read-only debugging tools over MCP so an
// external coding agent can inspect a Sync Directory without shelling out
// to sqlite3/hexdump. There are no write tools here by design: none of
// these handlers ever mutates the SD or the catalog.
var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Serve read-only inspection tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		s := server.NewMCPServer("notecove-store", Version)

		s.AddTool(mcp.NewTool("inspect_log",
			mcp.WithDescription("Parse a CRDT log or snapshot file with the offset-tracking codec inspector and return its fields as JSON"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .crdtlog or snapshot.yjs file")),
			mcp.WithString("kind", mcp.Description("\"log\" or \"snapshot\", default \"log\"")),
		), inspectLogTool)

		s.AddTool(mcp.NewTool("list_notes",
			mcp.WithDescription("Enumerate the catalog's notes for a given Storage Directory id"),
			mcp.WithString("sdId", mcp.Required(), mcp.Description("Storage Directory id to list notes for")),
		), listNotesTool(cat))

		s.AddTool(mcp.NewTool("gc_dry_run",
			mcp.WithDescription("Run the image mark-and-sweep pass in dry-run mode and return CleanupStats without deleting anything"),
			mcp.WithString("sdId", mcp.Required(), mcp.Description("Storage Directory id")),
			mcp.WithString("sdPath", mcp.Required(), mcp.Description("Filesystem path to the Storage Directory, resolved against root")),
			mcp.WithString("root", mcp.Description("Filesystem root sdPath is resolved against, default \".\"")),
		), gcDryRunTool(cat))

		return server.ServeStdio(s)
	},
}

func inspectLogTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := req.GetString("kind", "log")

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}

	var out any
	switch kind {
	case "snapshot":
		out = codec.InspectSnapshot(data)
	default:
		out = codec.InspectLog(data)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func listNotesTool(cat *catalog.Catalog) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sdID, err := req.RequireString("sdId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		notes, err := cat.ListNotesBySD(ctx, sdID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		encoded, err := json.Marshal(notes)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}
}

func gcDryRunTool(cat *catalog.Catalog) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sdID, err := req.RequireString("sdId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sdPath, err := req.RequireString("sdPath")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		root := req.GetString("root", ".")

		cfg := loadConfig()

		notes, err := cat.ListNotesBySD(ctx, sdID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		noteIDs := make([]string, len(notes))
		for i, n := range notes {
			noteIDs[i] = n.ID
		}

		fs := storagefs.NewOS(root)
		loader := &crdt.FileLoader{FS: fs, SDPaths: map[string]string{sdID: sdPath}}
		collector := &imagegc.Collector{
			Catalog:         cat,
			Manager:         crdt.NewManager(loader),
			FS:              fs,
			Bus:             events.New(),
			ThumbnailRoot:   cfg.ThumbnailRoot,
			GracePeriodDays: cfg.GracePeriodDays,
			DryRun:          true,
		}

		stats := collector.Run(ctx, sdID, sdPath, noteIDs)
		encoded, err := json.Marshal(stats)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}
}
