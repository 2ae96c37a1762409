package mockup

import (
	"encoding/json"
	"errors"
	"strings"

	"merchbase/internal/archive"

	"github.com/google/uuid"
)

// ManifestFileName is the sidecar file recognized inside mockup archives.
const ManifestFileName = "mockups.json"

// VariantRef is the classification context loaded from the catalog for one
// variant of the product being imported.
type VariantRef struct {
	ID         uuid.UUID
	PrintfulID string
	Color      string
	Size       string
}

// ManifestEntry is a validated, normalized manifest entry. VariantID is
// resolved against the catalog context at parse time.
type ManifestEntry struct {
	VariantID *uuid.UUID
	Placement string
	SortIndex *int
}

// Manifest maps sanitized archive paths to their normalized entries.
type Manifest struct {
	entries map[string]ManifestEntry
}

// Lookup returns the entry for a sanitized archive path.
func (m *Manifest) Lookup(path string) (ManifestEntry, bool) {
	if m == nil {
		return ManifestEntry{}, false
	}
	entry, ok := m.entries[path]
	return entry, ok
}

// Len reports how many entries the manifest resolved.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// rawEntry tolerates the manifest shapes seen in the wild: ids may be JSON
// numbers or strings, the file path may live under several keys, and the
// variant may be referenced five different ways.
type rawEntry struct {
	File              string          `json:"file"`
	Path              string          `json:"path"`
	Name              string          `json:"name"`
	VariantID         string          `json:"variantId"`
	Variant           string          `json:"variant"`
	VariantExternalID json.RawMessage `json:"variantExternalId"`
	VariantPrintfulID json.RawMessage `json:"variantPrintfulId"`
	VariantSku        json.RawMessage `json:"variantSku"`
	Color             string          `json:"color"`
	Size              string          `json:"size"`
	Placement         string          `json:"placement"`
	SortIndex         *int            `json:"sortIndex"`
}

// ParseManifest decodes a mockups.json payload. Both the array form and the
// path-keyed object form are accepted; entries that do not resolve to a file
// path are dropped rather than failing the parse. A JSON-level failure is
// returned to the caller, which treats it as "no manifest".
func ParseManifest(data []byte, variants []VariantRef) (*Manifest, error) {
	manifest := &Manifest{entries: make(map[string]ManifestEntry)}

	var asArray []rawEntry
	if err := json.Unmarshal(data, &asArray); err == nil {
		for _, raw := range asArray {
			manifest.add(raw.filePath(), raw, variants)
		}
		return manifest, nil
	}

	var asObject map[string]rawEntry
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil, errors.New("manifest is neither an entry array nor a path-keyed object")
	}
	for path, raw := range asObject {
		if raw.filePath() != "" {
			path = raw.filePath()
		}
		manifest.add(path, raw, variants)
	}
	return manifest, nil
}

func (m *Manifest) add(path string, raw rawEntry, variants []VariantRef) {
	key := archive.SanitizePath(path)
	if key == "" {
		return
	}

	m.entries[key] = ManifestEntry{
		VariantID: raw.resolveVariant(variants),
		Placement: normalizeToken(raw.Placement),
		SortIndex: raw.SortIndex,
	}
}

func (r rawEntry) filePath() string {
	for _, candidate := range []string{r.File, r.Path, r.Name} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// resolveVariant tries each supported reference in order: local id, provider
// id, sku, explicit color+size fields, then the "color/size" shorthand.
func (r rawEntry) resolveVariant(variants []VariantRef) *uuid.UUID {
	if id, err := uuid.Parse(strings.TrimSpace(r.VariantID)); err == nil {
		for i := range variants {
			if variants[i].ID == id {
				return &variants[i].ID
			}
		}
	}

	for _, ref := range []json.RawMessage{r.VariantPrintfulID, r.VariantExternalID, r.VariantSku} {
		if remoteID := flexibleString(ref); remoteID != "" {
			for i := range variants {
				if variants[i].PrintfulID == remoteID {
					return &variants[i].ID
				}
			}
		}
	}

	color, size := r.Color, r.Size
	if color == "" && size == "" && r.Variant != "" {
		color, size, _ = splitColorSize(r.Variant)
	}
	if color != "" || size != "" {
		if v := matchColorSize(variants, color, size); v != nil {
			return v
		}
	}

	return nil
}

// splitColorSize parses the "color/size" shorthand.
func splitColorSize(s string) (color, size string, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	}
	return strings.TrimSpace(s), "", false
}

// matchColorSize finds a variant by insensitive color+size comparison. When
// only the color is present the first variant with that color wins; there is
// no tie-break between its sizes.
func matchColorSize(variants []VariantRef, color, size string) *uuid.UUID {
	wantColor := normalizeToken(color)
	wantSize := normalizeSize(size)

	for i := range variants {
		if wantColor != "" && normalizeToken(variants[i].Color) != wantColor {
			continue
		}
		if wantSize != "" && normalizeSize(variants[i].Size) != wantSize {
			continue
		}
		if wantColor == "" && wantSize == "" {
			continue
		}
		return &variants[i].ID
	}
	return nil
}

// flexibleString accepts a JSON string or number and returns its text form.
func flexibleString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}
