package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	maxSegmentLen  = 80
	maxFileNameLen = 180
)

// Entry is one extracted archive file with its sanitized path.
type Entry struct {
	Path string
	Data []byte
}

// Extract decompresses an in-memory ZIP archive. Empty input yields an empty
// result, not an error. Directory entries and OS metadata artifacts
// (.DS_Store, __MACOSX) are skipped silently; every returned path has been
// through SanitizePath.
func Extract(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var entries []Entry
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if isMetadataArtifact(f.Name) {
			continue
		}

		path := SanitizePath(f.Name)
		if path == "" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %s: %w", f.Name, err)
		}

		entries = append(entries, Entry{Path: path, Data: content})
	}

	return entries, nil
}

func isMetadataArtifact(name string) bool {
	lower := strings.ToLower(name)
	if base := lastSegment(lower); base == ".ds_store" {
		return true
	}
	for _, seg := range splitSegments(lower) {
		if seg == "__macosx" {
			return true
		}
	}
	return false
}

// SanitizePath normalizes an archive entry path into a key safe for
// downstream object stores: traversal tokens are dropped, disallowed runes
// become "-", everything is lower-cased, and segments are length-bounded
// (80 for directories, 180 for the file name). Returns "" when nothing
// usable remains.
func SanitizePath(name string) string {
	segments := splitSegments(name)

	var clean []string
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		seg = sanitizeSegment(seg)
		if seg != "" {
			clean = append(clean, seg)
		}
	}
	if len(clean) == 0 {
		return ""
	}

	for i := range clean {
		limit := maxSegmentLen
		if i == len(clean)-1 {
			limit = maxFileNameLen
		}
		if len(clean[i]) > limit {
			clean[i] = strings.Trim(clean[i][:limit], ".")
		}
	}

	return strings.Join(clean, "/")
}

// BaseName returns the final segment of a sanitized path.
func BaseName(path string) string {
	return lastSegment(path)
}

func sanitizeSegment(seg string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(seg) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), ".")
}

func splitSegments(name string) []string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.Split(name, "/")
}

func lastSegment(name string) string {
	segs := splitSegments(name)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}
