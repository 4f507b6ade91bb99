// Package bootstrap implements the Default-Note Bootstrap (C9): on first
// launch of a fresh SD, decide whether to write a welcome note or wait for
// another instance to sync one in first.
package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

const (
	DefaultNoteID  = "default-note"
	pollInterval   = 200 * time.Millisecond
	pollTimeout    = 2 * time.Second
	welcomeTitle   = "Welcome to NoteCove"
	welcomeBodyFix = "Your notes, beautifully organized and always in sync."
)

// WelcomeContent is what gets written into the default note. Writer is an
// external collaborator (§6 "Markdown → document transform"); this
// package only decides whether and when to call it.
type WelcomeContent struct {
	Heading   string
	Paragraph string
}

// Writer installs content as the default note's CRDT document.
type Writer interface {
	WriteDefaultNote(sdID, noteID string, content WelcomeContent) error
}

// ContentProbe reports whether the default note's content fragment is
// currently non-empty, used both to check the initial state and to poll
// during the foreign-sync wait.
type ContentProbe interface {
	IsContentPresent(noteID, sdID string) bool
}

// Bootstrapper runs the C9 sequence for one SD.
type Bootstrapper struct {
	FS         *storagefs.Filesystem
	Catalog    *catalog.Catalog
	Probe      ContentProbe
	Writer     Writer
	Sleep      func(time.Duration)
	Now        func() time.Time
	InstanceID string

	// PollInterval/PollTimeout override the §4.9 poll loop's timing, set
	// from config.Config.BootstrapPollInterval/BootstrapTimeout by
	// callers; zero means fall back to the package defaults.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (b *Bootstrapper) sleep(d time.Duration) {
	if b.Sleep != nil {
		b.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (b *Bootstrapper) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}

func (b *Bootstrapper) pollInterval() time.Duration {
	if b.PollInterval > 0 {
		return b.PollInterval
	}
	return pollInterval
}

func (b *Bootstrapper) pollTimeout() time.Duration {
	if b.PollTimeout > 0 {
		return b.PollTimeout
	}
	return pollTimeout
}

// Run executes the bootstrap sequence for sdID rooted at sdPath. It never
// recreates the default note once the user has deleted it; in that case it
// selects an existing note instead and returns its id so the caller (the
// CLI or editor shell) knows what to show, persisting the same choice to
// the catalog's selectedNoteId state key for any other consumer that reads
// it independently. The empty string means there is nothing to select,
// which only happens on a brand-new instance with no notes at all.
func (b *Bootstrapper) Run(ctx context.Context, sdID, sdPath string) (selectedNoteID string, err error) {
	deletedFlag, ok, err := b.Catalog.GetState(ctx, catalog.StateDefaultNoteDeleted)
	if err != nil {
		return "", err
	}
	if ok && deletedFlag == "true" {
		return b.selectExistingNote(ctx)
	}

	if b.Probe.IsContentPresent(DefaultNoteID, sdID) {
		return DefaultNoteID, nil
	}

	if b.hasForeignEvidence(sdPath) {
		if b.waitForForeignContent(DefaultNoteID, sdID) {
			return DefaultNoteID, nil
		}
	}

	if err := b.writeWelcome(sdID); err != nil {
		return "", err
	}
	return DefaultNoteID, nil
}

// selectExistingNote implements §4.9's "select an existing note instead":
// once the default note is gone for good, the most-recently-modified
// surviving note becomes the one shown on launch.
func (b *Bootstrapper) selectExistingNote(ctx context.Context) (string, error) {
	n, found, err := b.Catalog.MostRecentNonDeletedNote(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	if err := b.Catalog.SetState(ctx, catalog.StateSelectedNoteID, n.ID); err != nil {
		return "", err
	}
	return n.ID, nil
}

// hasForeignEvidence implements §4.9's two evidence checks: another
// instance's activity log, or another instance's CRDT log files for the
// default note.
func (b *Bootstrapper) hasForeignEvidence(sdPath string) bool {
	if entries, err := b.FS.ListDir(sdPath + "/activity"); err == nil {
		for _, e := range entries {
			name := strings.TrimSuffix(e.Name(), ".log")
			if name != e.Name() && name != b.InstanceID {
				return true
			}
		}
	}

	logsDir := sdPath + "/notes/" + DefaultNoteID + "/logs"
	if entries, err := b.FS.ListDir(logsDir); err == nil {
		for _, e := range entries {
			instanceID := instanceFromLogFilename(e.Name())
			if instanceID != "" && instanceID != b.InstanceID {
				return true
			}
		}
	}
	return false
}

// instanceFromLogFilename parses "<instanceId>_<ts>.crdtlog".
func instanceFromLogFilename(name string) string {
	name = strings.TrimSuffix(name, ".crdtlog")
	if name == "" {
		return ""
	}
	idx := strings.LastIndex(name, "_")
	if idx <= 0 {
		return ""
	}
	return name[:idx]
}

// waitForForeignContent polls every 200ms for up to 2s; the first
// non-empty observation wins.
func (b *Bootstrapper) waitForForeignContent(noteID, sdID string) bool {
	deadline := b.now().Add(b.pollTimeout())
	for b.now().Before(deadline) {
		if b.Probe.IsContentPresent(noteID, sdID) {
			return true
		}
		b.sleep(b.pollInterval())
	}
	return b.Probe.IsContentPresent(noteID, sdID)
}

func (b *Bootstrapper) writeWelcome(sdID string) error {
	content := b.loadWelcomeFromBundle()
	return b.Writer.WriteDefaultNote(sdID, DefaultNoteID, content)
}

// loadWelcomeFromBundle reads a bundled welcome.md and turns it into a
// WelcomeContent, falling back to the fixed literal document when the
// file is missing or unparsable. There is no markdown library anywhere in
// the example pack this module is grounded on, so this reads the
// heading/paragraph pair with a minimal line-based parser rather than
// introducing a dependency the corpus never uses (see DESIGN.md).
func (b *Bootstrapper) loadWelcomeFromBundle() WelcomeContent {
	data, err := b.FS.ReadFile("welcome.md")
	if err != nil {
		return WelcomeContent{Heading: welcomeTitle, Paragraph: welcomeBodyFix}
	}
	return parseWelcomeMarkdown(string(data))
}

func parseWelcomeMarkdown(raw string) WelcomeContent {
	var heading, paragraph string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if heading == "" && strings.HasPrefix(line, "#") {
			heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}
		if paragraph == "" && !strings.HasPrefix(line, "#") {
			paragraph = line
			continue
		}
	}
	if heading == "" {
		heading = welcomeTitle
	}
	if paragraph == "" {
		paragraph = welcomeBodyFix
	}
	return WelcomeContent{Heading: heading, Paragraph: paragraph}
}
