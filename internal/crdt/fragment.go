package crdt

import "strings"

// ExtractText does the depth-first walk of a content fragment required by
// the discovery reconciler (§4.6.c): XmlText nodes contribute their text,
// XmlElement nodes recurse, and sibling outputs are newline-joined.
func ExtractText(f *XmlFragment) string {
	if f.Empty() {
		return ""
	}
	var parts []string
	for _, child := range f.Children {
		if s := extractNodeText(child); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func extractNodeText(n XmlNode) string {
	switch v := n.(type) {
	case *XmlText:
		return v.Text
	case *XmlElement:
		var parts []string
		for _, child := range v.Children {
			if s := extractNodeText(child); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// notecoveImageElement is the element name Image GC and the content
// walker both look for, per §3's Image definition.
const notecoveImageElement = "notecoveImage"

// ReferencedImageIDs folds a content fragment down to the set of imageId
// attributes on every notecoveImage element it contains, depth-first. Used
// by Image GC's mark phase (§4.8).
func ReferencedImageIDs(f *XmlFragment) []string {
	if f.Empty() {
		return nil
	}
	var ids []string
	for _, child := range f.Children {
		collectImageIDs(child, &ids)
	}
	return ids
}

func collectImageIDs(n XmlNode, out *[]string) {
	el, ok := n.(*XmlElement)
	if !ok {
		return
	}
	if el.Name == notecoveImageElement {
		if id, ok := el.Attributes["imageId"]; ok && id != "" {
			*out = append(*out, id)
		}
	}
	for _, child := range el.Children {
		collectImageIDs(child, out)
	}
}

// DeriveTitle strips angle-bracket markup left over from a naive
// extraction and defaults to "Untitled" per §4.6.d. It is intentionally
// crude — the real title extractor is an external collaborator (§6); this
// is the fallback path used when that collaborator has nothing to say.
func DeriveTitle(raw string) string {
	var b strings.Builder
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	title := strings.TrimSpace(strings.SplitN(b.String(), "\n", 2)[0])
	if title == "" {
		return "Untitled"
	}
	return title
}

// ContentPreview returns the first n characters of text after its first
// line, per §4.6.d's contentPreview derivation (default n = 200).
func ContentPreview(text string, n int) string {
	parts := strings.SplitN(text, "\n", 2)
	if len(parts) < 2 {
		return ""
	}
	rest := parts[1]
	runes := []rune(rest)
	if len(runes) <= n {
		return rest
	}
	return string(runes[:n])
}
