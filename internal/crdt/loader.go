package crdt

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/ohler55/ojg/jp"

	"github.com/drewcsillag/notecove-storage/internal/codec"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

// queryField evaluates a JSONPath selector against payload and returns its
// matches. Using jp here (rather than direct map indexing) gives
// getMetadata's "defensive fallback on missing fields" requirement for
// free: a selector that matches nothing, or a payload missing entirely,
// yields an empty result slice instead of a panic or a runtime type
// assertion failure, mirroring internal/ingest/json_walker.go's
// jp.ParseString+Get pattern.
func queryField(payload map[string]any, selector string) []any {
	expr, err := jp.ParseString(selector)
	if err != nil {
		return nil
	}
	return expr.Get(payload)
}

// FileLoader is the reference Loader: it reads a note's snapshot.yjs (if
// present) and its ordered log files from disk via storagefs, decodes them
// with internal/codec, and folds each record's JSON-encoded payload into a
// Document. Real CRDT merge semantics (conflict resolution between
// concurrent updates) are out of scope here — records are folded in
// timestamp order, last write wins per field, which is sufficient for the
// storage core's own tests and for the inspector tool.
type FileLoader struct {
	FS      *storagefs.Filesystem
	SDPaths map[string]string // sdId -> root path
}

func (l *FileLoader) Load(noteID, sdID string) (*Document, error) {
	root, ok := l.SDPaths[sdID]
	if !ok {
		return nil, errors.New("crdt: unknown sd " + sdID)
	}
	notePath := root + "/notes/" + noteID

	var payload map[string]any

	if data, err := l.FS.ReadFile(notePath + "/snapshot.yjs"); err == nil {
		snap, err := codec.ReadSnapshotBody(data[codec.SnapshotHeaderSize:])
		if err == nil && len(snap.DocumentState) > 0 {
			_ = json.Unmarshal(snap.DocumentState, &payload)
		}
	}

	logsDir := notePath + "/logs"
	var records []codec.LogRecord
	if entries, err := l.FS.ListDir(logsDir); err == nil {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			raw, err := l.FS.ReadFile(logsDir + "/" + e.Name())
			if err != nil {
				continue
			}
			fileRecords, err := codec.ReadLogRecords(raw[codec.LogHeaderSize:])
			if err != nil {
				continue
			}
			records = append(records, fileRecords...)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })
	for _, rec := range records {
		var fields map[string]any
		if json.Unmarshal(rec.Data, &fields) != nil {
			continue
		}
		if payload == nil {
			payload = map[string]any{}
		}
		for k, v := range fields {
			payload[k] = v
		}
	}

	return buildDocument(noteID, payload), nil
}

func buildDocument(noteID string, payload map[string]any) *Document {
	doc := &Document{NoteID: noteID, Content: &XmlFragment{}}
	if payload == nil {
		return doc
	}

	doc.metadata = Metadata{
		FolderID: firstString(queryField(payload, "$.folderId")),
		Created:  firstTime(queryField(payload, "$.created")),
		Modified: firstTime(queryField(payload, "$.modified")),
		Deleted:  firstBool(queryField(payload, "$.deleted")),
		Pinned:   firstBool(queryField(payload, "$.pinned")),
	}

	if nodes := queryField(payload, "$.content"); len(nodes) > 0 {
		doc.Content = decodeFragment(nodes[0])
	}
	return doc
}

func firstString(matches []any) string {
	if len(matches) == 0 {
		return ""
	}
	s, _ := matches[0].(string)
	return s
}

func firstBool(matches []any) bool {
	if len(matches) == 0 {
		return false
	}
	b, _ := matches[0].(bool)
	return b
}

func firstTime(matches []any) time.Time {
	if len(matches) == 0 {
		return time.Time{}
	}
	switch v := matches[0].(type) {
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// decodeFragment turns a raw JSON value (as produced by json.Unmarshal
// into any) into an XmlFragment tree. Elements are
// {"name": ..., "attrs": {...}, "children": [...]}; anything else at a
// child position is treated as text.
func decodeFragment(raw any) *XmlFragment {
	m, ok := raw.(map[string]any)
	if !ok {
		return &XmlFragment{}
	}
	children, _ := m["children"].([]any)
	frag := &XmlFragment{}
	for _, c := range children {
		if node := decodeNode(c); node != nil {
			frag.Children = append(frag.Children, node)
		}
	}
	return frag
}

func decodeNode(raw any) XmlNode {
	switch v := raw.(type) {
	case string:
		return &XmlText{Text: v}
	case map[string]any:
		name, _ := v["name"].(string)
		if name == "" {
			return nil
		}
		attrs := map[string]string{}
		if rawAttrs, ok := v["attrs"].(map[string]any); ok {
			for k, av := range rawAttrs {
				if s, ok := av.(string); ok {
					attrs[k] = s
				}
			}
		}
		el := &XmlElement{Name: name, Attributes: attrs}
		if rawChildren, ok := v["children"].([]any); ok {
			for _, c := range rawChildren {
				if node := decodeNode(c); node != nil {
					el.Children = append(el.Children, node)
				}
			}
		}
		return el
	default:
		return nil
	}
}
