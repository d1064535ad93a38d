package chat

import (
	"regexp"
	"strings"
)

// ReferencesMarker separates a reply body from its cited sources
const ReferencesMarker = "References:"

// A file-like token: non-colon, non-space characters, a dot, an extension.
var referencePattern = regexp.MustCompile(`[^:\s]+\.[a-zA-Z0-9]+`)

// ExtractReferences collects file-like tokens from content in order of
// first appearance
func ExtractReferences(content string) []Reference {
	matches := referencePattern.FindAllString(content, -1)
	refs := make([]Reference, 0, len(matches))
	seen := make(map[string]bool, len(matches))

	for _, match := range matches {
		name := strings.TrimLeft(strings.TrimSpace(match), "([{\"'`*-")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, Reference{Name: name})
	}
	return refs
}

// SplitReferences splits text on the first references marker. tail excludes
// the marker itself.
func SplitReferences(text string) (body, tail string, ok bool) {
	i := strings.Index(text, ReferencesMarker)
	if i < 0 {
		return text, "", false
	}
	return text[:i], text[i+len(ReferencesMarker):], true
}

// StripReferences returns the trimmed body of text
func StripReferences(text string) string {
	body, _, _ := SplitReferences(text)
	return strings.TrimSpace(body)
}

// formatReferences renders a references tail one entry per line
func formatReferences(tail string, ok bool) string {
	if !ok {
		return ""
	}
	lines := make([]string, 0)
	for _, line := range strings.Split(tail, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ReferencesMarker
	}
	return ReferencesMarker + "\n" + strings.Join(lines, "\n")
}
