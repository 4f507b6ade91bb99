package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-storage/internal/bootstrap"
	"github.com/drewcsillag/notecove-storage/internal/codec"
	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

var bootstrapRoot string

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapRoot, "root", ".", "Filesystem root the sd path is resolved against")
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap <sdId> <sdPath>",
	Short: "Run the default-note bootstrap sequence for a freshly initialized Sync Directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sdID, sdPath := args[0], args[1]
		cfg := loadConfig()

		cat := openCatalog()
		defer func() { _ = cat.Close() }()

		fs := storagefs.NewOS(bootstrapRoot)
		loader := &crdt.FileLoader{FS: fs, SDPaths: map[string]string{sdID: sdPath}}
		manager := crdt.NewManager(loader)

		b := &bootstrap.Bootstrapper{
			FS:           fs,
			Catalog:      cat,
			Probe:        &crdtContentProbe{manager: manager},
			Writer:       &crdtLogWriter{fs: fs, sdPaths: map[string]string{sdID: sdPath}, instanceID: instanceID},
			InstanceID:   instanceID,
			PollInterval: cfg.BootstrapPollInterval,
			PollTimeout:  cfg.BootstrapTimeout,
		}

		selected, err := b.Run(cmd.Context(), sdID, sdPath)
		if err != nil {
			return err
		}
		if selected == "" {
			fmt.Println("bootstrap complete")
		} else {
			fmt.Printf("bootstrap complete, selected note %s\n", selected)
		}
		return nil
	},
}

// crdtContentProbe answers bootstrap.ContentProbe by loading the note
// through the same C5 facade the rest of the CLI uses and checking
// whether its content fragment folds to any text.
type crdtContentProbe struct {
	manager *crdt.Manager
}

func (p *crdtContentProbe) IsContentPresent(noteID, sdID string) bool {
	doc, err := p.manager.LoadNote(noteID, sdID)
	if err != nil {
		return false
	}
	return crdt.ExtractText(doc.Content) != ""
}

// crdtLogWriter answers bootstrap.Writer by appending a single CRDT log
// record encoding the welcome content, in the same payload shape
// internal/crdt.FileLoader decodes: a top-level object with "content" an
// XmlFragment holding two text nodes, the heading and the paragraph.
type crdtLogWriter struct {
	fs         *storagefs.Filesystem
	sdPaths    map[string]string
	instanceID string
}

func (w *crdtLogWriter) WriteDefaultNote(sdID, noteID string, content bootstrap.WelcomeContent) error {
	root, ok := w.sdPaths[sdID]
	if !ok {
		return fmt.Errorf("bootstrap: unknown sd %s", sdID)
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"folderId": "",
		"created":  now.Format(time.RFC3339),
		"modified": now.Format(time.RFC3339),
		"deleted":  false,
		"pinned":   false,
		"content": map[string]any{
			"children": []any{content.Heading, content.Paragraph},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	logsDir := root + "/notes/" + noteID + "/logs"
	if err := w.fs.MkdirAll(logsDir); err != nil {
		return err
	}

	buf := codec.EncodeLogHeader()
	buf = codec.EncodeLogRecord(buf, codec.LogRecord{
		Timestamp: uint64(now.UnixMilli()),
		Sequence:  1,
		Data:      data,
	})
	buf = codec.EncodeLogSentinel(buf)

	logName := fmt.Sprintf("%s_%d.crdtlog", w.instanceID, now.UnixNano())
	return w.fs.WriteFile(logsDir+"/"+logName, buf)
}
